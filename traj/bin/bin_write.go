package bin

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	abp "github.com/rmera/abpmovie"
)

// Writer is a binary trajectory opened for writing.
type Writer struct {
	f         *os.File //nil if the writer was built on an io.Writer
	comp      io.WriteCloser
	h         *bufio.Writer
	filename  string
	natoms    int
	nframes   int
	written   int
	buf       []byte
	writeable bool
}

// NewWriter creates the file name and writes the header of a trajectory
// with natoms particles and nframes frames. Exactly nframes frames must be
// given to WNext before Close.
func NewWriter(name string, natoms, nframes int) (*Writer, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	W, err := newWriter(f, name, natoms, nframes)
	if err != nil {
		f.Close()
		return nil, err
	}
	W.f = f
	return W, nil
}

func newWriter(w io.Writer, name string, natoms, nframes int) (*Writer, error) {
	if natoms < 0 || nframes < 0 || natoms > math.MaxInt32 || nframes > math.MaxInt32 {
		return nil, &abp.HeaderError{File: name, Particles: natoms, Frames: nframes}
	}
	W := &Writer{filename: name, natoms: natoms, nframes: nframes}
	var err error
	W.comp, err = compressor(name, w)
	if err != nil {
		return nil, err
	}
	W.h = bufio.NewWriterSize(W.comp, 1<<16)
	if err := binary.Write(W.h, endian, [2]int32{int32(natoms), int32(nframes)}); err != nil {
		return nil, err
	}
	W.buf = make([]byte, natoms*floatSize)
	W.writeable = true
	return W, nil
}

// Len returns the number of particles per frame.
func (W *Writer) Len() int {
	return W.natoms
}

// WNext writes F as the next frame.
func (W *Writer) WNext(F *abp.Frame) error {
	if !W.writeable {
		return fmt.Errorf("trajectory file %s: not writeable", W.filename)
	}
	if F == nil {
		return fmt.Errorf("trajectory file %s: nil frame given", W.filename)
	}
	if F.Len() != W.natoms || len(F.Orient) != W.natoms {
		return fmt.Errorf("trajectory file %s: %d particles given, but %d expected", W.filename, F.Len(), W.natoms)
	}
	if W.written >= W.nframes {
		return fmt.Errorf("trajectory file %s: all %d declared frames already written", W.filename, W.nframes)
	}
	if err := binary.Write(W.h, endian, F.Timestep); err != nil {
		return err
	}
	for a := 0; a < nArrays; a++ {
		for i := 0; i < W.natoms; i++ {
			var v float64
			switch a {
			case 0:
				v = F.Pos[i].X
			case 1:
				v = F.Pos[i].Y
			case 2:
				v = F.Pos[i].Z
			case 3:
				v = F.Orient[i].X
			case 4:
				v = F.Orient[i].Y
			default:
				v = F.Orient[i].Z
			}
			endian.PutUint64(W.buf[i*floatSize:], math.Float64bits(v))
		}
		if _, err := W.h.Write(W.buf); err != nil {
			return err
		}
	}
	W.written++
	return nil
}

// Close flushes and closes the trajectory. It returns an error if fewer
// frames than declared were written; the file is still closed in that case.
func (W *Writer) Close() error {
	if W == nil || !W.writeable {
		return nil
	}
	W.writeable = false
	err := W.h.Flush()
	if err2 := W.comp.Close(); err == nil {
		err = err2
	}
	if W.f != nil {
		if err2 := W.f.Close(); err == nil {
			err = err2
		}
	}
	if err == nil && W.written != W.nframes {
		err = fmt.Errorf("trajectory file %s: %d frames written, but %d declared", W.filename, W.written, W.nframes)
	}
	return err
}

// Encode writes the whole trajectory T to w. name selects the compression.
func Encode(w io.Writer, name string, T *abp.Trajectory) error {
	W, err := newWriter(w, name, T.Particles(), T.Len())
	if err != nil {
		return err
	}
	for i := 0; i < T.Len(); i++ {
		f := T.Frame(i)
		if err := W.WNext(&f); err != nil {
			W.Close()
			return err
		}
	}
	return W.Close()
}

// Write writes T to the file name.
func Write(name string, T *abp.Trajectory) error {
	W, err := NewWriter(name, T.Particles(), T.Len())
	if err != nil {
		return err
	}
	for i := 0; i < T.Len(); i++ {
		f := T.Frame(i)
		if err := W.WNext(&f); err != nil {
			W.Close()
			return err
		}
	}
	return W.Close()
}
