/*
 * encode.go, part of abpmovie
 *
 * Copyright 2024 Raul Mera Adasme <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License  as published by
 * the Free Software Foundation; either version 2.1 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston,
 * MA 02110-1301, USA.
 */

//In order to use this package you need ffmpeg, or a program that takes the same
//command line options.

// Package encode turns a directory of numbered frames into an H.264 video
// by running ffmpeg.
package encode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	abp "github.com/rmera/abpmovie"
)

// Params are the encoding settings.
type Params struct {
	FPS    int
	Codec  string
	PixFmt string
	CRF    int
}

// DefaultParams returns the default encoder settings:
// 30 frames per second, libx264, yuv420p, CRF 23.
func DefaultParams() Params {
	return Params{FPS: 30, Codec: "libx264", PixFmt: "yuv420p", CRF: 23}
}

//Time given to the encoder to release its output after being killed.
const waitDelay = 5 * time.Second

// Assembler runs the encoder. The zero value is not usable, use
// NewAssembler.
type Assembler struct {
	command string
	Params  Params
	Timeout time.Duration //no limit if 0
	Logger  *slog.Logger
}

// NewAssembler returns an assembler running ffmpeg with the default settings.
func NewAssembler() *Assembler {
	A := new(Assembler)
	A.SetDefaults()
	return A
}

// SetDefaults sets the command to ffmpeg and the default parameters.
func (A *Assembler) SetDefaults() {
	A.command = "ffmpeg"
	A.Params = DefaultParams()
}

// Command returns the encoder program.
func (A *Assembler) Command() string {
	return A.command
}

// SetCommand sets the encoder program, a name searched in the PATH or a path.
func (A *Assembler) SetCommand(name string) {
	A.command = name
}

func (A *Assembler) logger() *slog.Logger {
	if A.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return A.Logger
}

// Args returns the encoder's arguments to read the frames matching the
// printf-style pattern in dir and write output, overwriting it.
func (A *Assembler) Args(dir, pattern, output string) []string {
	p := A.Params
	return []string{
		"-y",
		"-framerate", strconv.Itoa(p.FPS),
		"-i", filepath.Join(dir, pattern),
		"-c:v", p.Codec,
		"-pix_fmt", p.PixFmt,
		"-crf", strconv.Itoa(p.CRF),
		output,
	}
}

// Check returns an *abp.DependencyError if the encoder can't be found.
func (A *Assembler) Check() error {
	return Check(A.command)
}

// Check returns an *abp.DependencyError if the program command can't be found.
func Check(command string) error {
	if _, err := exec.LookPath(command); err != nil {
		return &abp.DependencyError{Name: command, Err: err}
	}
	return nil
}

// Encode runs the encoder once over the frames in dir. The directory of
// output is created if needed. If the encoder fails, the returned error is
// an *abp.EncodeError holding everything the encoder printed. If ctx is
// done first, the encoder is killed and the context's error returned.
// Encode never removes the frames.
func (A *Assembler) Encode(ctx context.Context, dir, pattern, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("encoding %s: %w", output, err)
	}
	if A.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, A.Timeout)
		defer cancel()
	}
	args := A.Args(dir, pattern, output)
	cmd := exec.CommandContext(ctx, A.command, args...)
	cmd.WaitDelay = waitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	A.logger().Debug("running encoder", "command", A.command+" "+strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		//an encoder that exited 0 produced the video, whatever ctx says now.
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("encoding %s stopped, frames kept in %s: %w", output, dir, cerr)
		}
		return &abp.EncodeError{Output: output, Diagnostics: out.String(), Err: err}
	}
	return nil
}

// Cleanup removes the frames directory.
func (A *Assembler) Cleanup(dir string) error {
	return os.RemoveAll(dir)
}

// Assemble encodes the frames in dir into output and, only if that
// succeeds, removes dir. A failure to remove dir is logged, but the video
// was produced, so Assemble still returns nil.
func (A *Assembler) Assemble(ctx context.Context, dir, pattern, output string) error {
	A.logger().Info("Creating MP4: " + output)
	if err := A.Encode(ctx, dir, pattern, output); err != nil {
		return err
	}
	A.logger().Info("Created: " + output)
	if err := A.Cleanup(dir); err != nil {
		A.logger().Warn("could not remove frames", "dir", dir, "err", err)
	}
	return nil
}
