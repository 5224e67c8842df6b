/*
 * bin.go, part of abpmovie
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

// Package bin reads and writes the binary trajectories produced by the
// confined ABP simulation. The layout is, with no padding and in
// little-endian order:
//
//	int32 particles
//	int32 frames
//	frames times:
//		int32 timestep
//		float64 x[particles], y[particles], z[particles]
//		float64 ex[particles], ey[particles], ez[particles]
//
// There is no magic number, version or checksum: the declared counts
// are trusted. Files ending in .zst or .gz are transparently
// (de)compressed.
package bin

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	abp "github.com/rmera/abpmovie"
	"gonum.org/v1/gonum/spatial/r3"
)

//Sizes, in bytes, of the pieces of the format.
const (
	headerSize   = 8
	timestepSize = 4
	floatSize    = 8
	nArrays      = 6
)

//chunk is the number of values read at a time.
const chunk = 1 << 13

// Arrays are the names of the per-frame arrays, in file order.
var Arrays = [nArrays]string{"x", "y", "z", "ex", "ey", "ez"}

var endian = binary.LittleEndian

//setters put a decoded value in the right component of the right vector.
var setters = [nArrays]func(f *abp.Frame, i int, v float64){
	func(f *abp.Frame, i int, v float64) { f.Pos[i].X = v },
	func(f *abp.Frame, i int, v float64) { f.Pos[i].Y = v },
	func(f *abp.Frame, i int, v float64) { f.Pos[i].Z = v },
	func(f *abp.Frame, i int, v float64) { f.Orient[i].X = v },
	func(f *abp.Frame, i int, v float64) { f.Orient[i].Y = v },
	func(f *abp.Frame, i int, v float64) { f.Orient[i].Z = v },
}

// Reader is a binary trajectory opened for reading.
type Reader struct {
	f        *os.File //nil if the reader was built on an io.Reader
	dec      io.ReadCloser
	h        *bufio.Reader
	filename string
	natoms   int
	nframes  int
	read     int //frames read so far
	buf      []byte
	readable bool
}

// New opens the binary trajectory in name and reads its header.
// For uncompressed files, the size of the file is compared with the
// declared counts, so truncated files are detected before any frame
// is read.
func New(name string) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	R, err := newReader(f, name)
	if err != nil {
		f.Close()
		return nil, err
	}
	R.f = f
	if Compressed(name) {
		return R, nil
	}
	info, err := f.Stat()
	if err != nil {
		R.Close()
		return nil, err
	}
	if err := R.checkSize(info.Size()); err != nil {
		R.Close()
		return nil, err
	}
	return R, nil
}

// NewReader reads the header of a binary trajectory from r. name is used
// to select the decompression, and in error messages.
func NewReader(r io.Reader, name string) (*Reader, error) {
	return newReader(r, name)
}

func newReader(r io.Reader, name string) (*Reader, error) {
	R := new(Reader)
	R.filename = name
	var err error
	R.dec, err = decompressor(name, r)
	if err != nil {
		return nil, fmt.Errorf("trajectory file %s: %w", name, err)
	}
	R.h = bufio.NewReaderSize(R.dec, 1<<16)
	var counts [2]int32
	if err := binary.Read(R.h, endian, &counts); err != nil {
		R.dec.Close()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &abp.TruncatedError{File: name, Array: "header", Want: 2}
		}
		return nil, fmt.Errorf("trajectory file %s: %w", name, err)
	}
	if counts[0] < 0 || counts[1] < 0 {
		R.dec.Close()
		return nil, &abp.HeaderError{File: name, Particles: int(counts[0]), Frames: int(counts[1])}
	}
	R.natoms = int(counts[0])
	R.nframes = int(counts[1])
	R.readable = true
	return R, nil
}

//checkSize compares the size of an uncompressed file with the one
//implied by the header. If the file is short, it returns the error
//reading would have produced, without reading or allocating anything.
func (R *Reader) checkSize(size int64) error {
	arr := int64(R.natoms) * floatSize
	block := timestepSize + nArrays*arr
	need := headerSize + int64(R.nframes)*block
	if size >= need {
		return nil
	}
	rest := size - headerSize
	frame := int(rest / block)
	rest = rest % block
	if rest < timestepSize {
		return &abp.TruncatedError{File: R.filename, Frame: frame, Array: "timestep", Want: 1, Got: 0}
	}
	rest -= timestepSize
	a := rest / arr
	return &abp.TruncatedError{File: R.filename, Frame: frame, Array: Arrays[a], Want: R.natoms, Got: int((rest % arr) / floatSize)}
}

// Readable returns true if there are frames left to read.
func (R *Reader) Readable() bool {
	return R.readable
}

// Len returns the number of particles per frame.
func (R *Reader) Len() int {
	return R.natoms
}

// Frames returns the number of frames declared in the header.
func (R *Reader) Frames() int {
	return R.nframes
}

// Next reads the next frame into F, which must have room for Len()
// particles. If F is nil, the frame is read and discarded. After the last
// declared frame, Next returns io.EOF.
func (R *Reader) Next(F *abp.Frame) error {
	if F != nil && (F.Len() < R.natoms || len(F.Orient) < R.natoms) {
		return fmt.Errorf("trajectory file %s: frame buffer has room for %d particles, %d needed", R.filename, F.Len(), R.natoms)
	}
	return R.next(F, false)
}

//next reads one frame. With grow, the vectors of F are appended as the x
//and ex arrays arrive, so memory follows the data actually read and not
//the counts in the header.
func (R *Reader) next(F *abp.Frame, grow bool) error {
	if R.read >= R.nframes {
		R.readable = false
		return io.EOF
	}
	if !R.readable {
		return fmt.Errorf("trajectory file %s: not readable", R.filename)
	}
	frame := R.read
	var ts int32
	if err := binary.Read(R.h, endian, &ts); err != nil {
		return R.short(err, frame, "timestep", 1, 0)
	}
	if F != nil {
		F.Timestep = ts
	}
	if R.buf == nil {
		R.buf = make([]byte, min(R.natoms, chunk)*floatSize)
	}
	for a := range Arrays {
		set := setters[a]
		for got := 0; got < R.natoms; {
			n := min(R.natoms-got, chunk)
			k, err := io.ReadFull(R.h, R.buf[:n*floatSize])
			if err != nil {
				return R.short(err, frame, Arrays[a], R.natoms, got+k/floatSize)
			}
			if F != nil {
				for i := 0; i < n; i++ {
					v := math.Float64frombits(endian.Uint64(R.buf[i*floatSize:]))
					switch {
					case grow && a == 0:
						F.Pos = append(F.Pos, r3.Vec{X: v})
					case grow && a == 3:
						F.Orient = append(F.Orient, r3.Vec{X: v})
					default:
						set(F, got+i, v)
					}
				}
			}
			got += n
		}
	}
	R.read++
	return nil
}

//short turns a read error into a TruncatedError if it was caused by the end of the data.
func (R *Reader) short(err error, frame int, array string, want, got int) error {
	R.readable = false
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &abp.TruncatedError{File: R.filename, Frame: frame, Array: array, Want: want, Got: got}
	}
	return fmt.Errorf("trajectory file %s: frame %d: array %s: %w", R.filename, frame, array, err)
}

// Close releases the file. The reader can't be used after this call.
func (R *Reader) Close() error {
	R.readable = false
	var err error
	if R.dec != nil {
		err = R.dec.Close()
		R.dec = nil
	}
	if R.f != nil {
		if err2 := R.f.Close(); err == nil {
			err = err2
		}
		R.f = nil
	}
	return err
}

//readAll reads every declared frame from R. Frames are allocated as they
//are read, so a header declaring more than the data holds fails with a
//TruncatedError instead of exhausting memory.
func readAll(R *Reader) (*abp.Trajectory, error) {
	var frames []abp.Frame
	for R.read < R.nframes {
		var F abp.Frame
		if err := R.next(&F, true); err != nil {
			return nil, err
		}
		frames = append(frames, F)
	}
	return abp.NewTrajectory(abp.Header{Particles: R.natoms, Frames: R.nframes}, frames)
}

// Read decodes the whole binary trajectory in name. It never returns
// a partially filled trajectory.
func Read(name string) (*abp.Trajectory, error) {
	R, err := New(name)
	if err != nil {
		return nil, err
	}
	defer R.Close()
	return readAll(R)
}

// Decode is like Read, but reads the trajectory from r.
func Decode(r io.Reader, name string) (*abp.Trajectory, error) {
	R, err := NewReader(r, name)
	if err != nil {
		return nil, err
	}
	defer R.Close()
	return readAll(R)
}
