/*
 * trajectory.go, part of abpmovie.
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
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Header holds the counts declared by a trajectory. They are fixed
// for the whole trajectory.
type Header struct {
	Particles int
	Frames    int
}

// Frame is one snapshot of the system. Element i of Pos and Orient
// belongs to particle i.
type Frame struct {
	Timestep int32
	Pos      []r3.Vec
	Orient   []r3.Vec
}

// NewFrame returns a frame with room for natoms particles.
func NewFrame(natoms int) *Frame {
	return &Frame{Pos: make([]r3.Vec, natoms), Orient: make([]r3.Vec, natoms)}
}

// Len returns the number of particles in the frame.
func (F *Frame) Len() int {
	return len(F.Pos)
}

// Trajectory is the decoded history of one simulation run. Frames are kept
// in file order, which is not necessarily the order of their timesteps.
// A Trajectory is not modified after NewTrajectory returns it; callers must
// not write through the slices returned by Frame.
type Trajectory struct {
	header Header
	frames []Frame
}

// NewTrajectory builds a trajectory from frames. Every frame must have
// exactly h.Particles positions and orientations, and there must be
// h.Frames frames.
func NewTrajectory(h Header, frames []Frame) (*Trajectory, error) {
	if h.Particles < 0 || h.Frames < 0 {
		return nil, &HeaderError{Particles: h.Particles, Frames: h.Frames}
	}
	if len(frames) != h.Frames {
		return nil, fmt.Errorf("%d frames given, but %d declared", len(frames), h.Frames)
	}
	for i, f := range frames {
		if len(f.Pos) != h.Particles || len(f.Orient) != h.Particles {
			return nil, fmt.Errorf("frame %d has %d positions and %d orientations, but %d particles declared", i, len(f.Pos), len(f.Orient), h.Particles)
		}
	}
	return &Trajectory{header: h, frames: frames}, nil
}

// Header returns the counts of the trajectory.
func (T *Trajectory) Header() Header {
	return T.header
}

// Len returns the number of frames.
func (T *Trajectory) Len() int {
	return len(T.frames)
}

// Particles returns the number of particles per frame.
func (T *Trajectory) Particles() int {
	return T.header.Particles
}

// Frame returns the i-th frame in file order. It panics if i is out of range.
func (T *Trajectory) Frame(i int) Frame {
	return T.frames[i]
}

// Timesteps returns the distinct timesteps of the trajectory in ascending order.
func (T *Trajectory) Timesteps() []int32 {
	seen := make(map[int32]bool, len(T.frames))
	ret := make([]int32, 0, len(T.frames))
	for _, f := range T.frames {
		if seen[f.Timestep] {
			continue
		}
		seen[f.Timestep] = true
		ret = append(ret, f.Timestep)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// FramesAt returns the file-order indexes of every frame with the given timestep.
func (T *Trajectory) FramesAt(timestep int32) []int {
	var ret []int
	for i, f := range T.frames {
		if f.Timestep == timestep {
			ret = append(ret, i)
		}
	}
	return ret
}

// IDs returns the particle identifiers, 0 to Particles()-1.
func (T *Trajectory) IDs() []int {
	ret := make([]int, T.header.Particles)
	for i := range ret {
		ret[i] = i
	}
	return ret
}

// Extent summarizes the positions of the whole trajectory.
type Extent struct {
	MaxXY float64 //max(|x|,|y|)
	MinZ  float64
	MaxZ  float64
}

// Extent returns the spatial extent of all positions in all frames.
// ok is false if the trajectory has no positions at all.
func (T *Trajectory) Extent() (ext Extent, ok bool) {
	if T.Len() == 0 || T.header.Particles == 0 {
		return ext, false
	}
	ext.MinZ = math.Inf(1)
	ext.MaxZ = math.Inf(-1)
	xy := make([]float64, 2*T.header.Particles)
	z := make([]float64, T.header.Particles)
	for _, f := range T.frames {
		for i, v := range f.Pos {
			xy[2*i] = math.Abs(v.X)
			xy[2*i+1] = math.Abs(v.Y)
			z[i] = v.Z
		}
		ext.MaxXY = math.Max(ext.MaxXY, floats.Max(xy))
		ext.MinZ = math.Min(ext.MinZ, floats.Min(z))
		ext.MaxZ = math.Max(ext.MaxZ, floats.Max(z))
	}
	return ext, true
}
