/*
 * errors.go, part of abpmovie.
 *
 *
 * Copyright 2024 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package abp

import (
	"errors"
	"fmt"
	"strings"
)

//The error kinds. All the errors returned by this module that come
//from a broken input or a failing collaborator match one of these
//with errors.Is. The typed errors below carry the details.
var (
	ErrInputNotFound     = errors.New("trajectory input not found")
	ErrTruncatedData     = errors.New("truncated trajectory data")
	ErrBadHeader         = errors.New("invalid trajectory header")
	ErrMalformedRow      = errors.New("malformed trajectory row")
	ErrEmptyTrajectory   = errors.New("empty trajectory")
	ErrEmptyPopulation   = errors.New("empty particle population")
	ErrMissingDependency = errors.New("missing dependency")
	ErrRenderFailure     = errors.New("frame render failed")
	ErrEncodingFailure   = errors.New("video encoding failed")
)

// NotFoundError is returned when none of the probed trajectory files exist.
type NotFoundError struct {
	Tried []string
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("neither of %s found", strings.Join(err.Tried, ", "))
}

func (err *NotFoundError) Is(target error) bool { return target == ErrInputNotFound }

// TruncatedError reports a binary trajectory that ended before the declared
// amount of data was read. Array is "header", "timestep" or one of
// x, y, z, ex, ey, ez. Want and Got are counted in elements of that array.
type TruncatedError struct {
	File  string
	Frame int
	Array string
	Want  int
	Got   int
}

func (err *TruncatedError) Error() string {
	if err.Array == "header" {
		return fmt.Sprintf("trajectory file %s: truncated header", err.File)
	}
	return fmt.Sprintf("trajectory file %s: frame %d: array %s has %d of %d values", err.File, err.Frame, err.Array, err.Got, err.Want)
}

func (err *TruncatedError) Is(target error) bool { return target == ErrTruncatedData }

// HeaderError reports declared counts that can't be valid.
type HeaderError struct {
	File      string
	Particles int
	Frames    int
}

func (err *HeaderError) Error() string {
	return fmt.Sprintf("trajectory file %s: invalid header (particles=%d, frames=%d)", err.File, err.Particles, err.Frames)
}

func (err *HeaderError) Is(target error) bool { return target == ErrBadHeader }

// RowError reports a text trajectory row that can't be decoded. Row is 1-based
// and counts the header line.
type RowError struct {
	File string
	Row  int
	Msg  string
}

func (err *RowError) Error() string {
	return fmt.Sprintf("trajectory file %s: row %d: %s", err.File, err.Row, err.Msg)
}

func (err *RowError) Is(target error) bool { return target == ErrMalformedRow }

// DependencyError is returned by the pre-flight checks when an external
// collaborator is not available.
type DependencyError struct {
	Name string
	Err  error
}

func (err *DependencyError) Error() string {
	return fmt.Sprintf("%s not available: %v", err.Name, err.Err)
}

func (err *DependencyError) Is(target error) bool { return target == ErrMissingDependency }

func (err *DependencyError) Unwrap() error { return err.Err }

// RenderError identifies the frame whose rendering aborted a video.
type RenderError struct {
	Index    int
	Timestep int32
	Err      error
}

func (err *RenderError) Error() string {
	return fmt.Sprintf("rendering frame %d (timestep %d): %v", err.Index, err.Timestep, err.Err)
}

func (err *RenderError) Is(target error) bool { return target == ErrRenderFailure }

func (err *RenderError) Unwrap() error { return err.Err }

// EncodeError carries the encoder's own output, verbatim.
type EncodeError struct {
	Output      string
	Diagnostics string
	Err         error
}

func (err *EncodeError) Error() string {
	return fmt.Sprintf("encoding %s: %v\n%s", err.Output, err.Err, err.Diagnostics)
}

func (err *EncodeError) Is(target error) bool { return target == ErrEncodingFailure }

func (err *EncodeError) Unwrap() error { return err.Err }
