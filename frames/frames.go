/*
 * frames.go, part of abpmovie
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

// Package frames renders one image per timestep of a trajectory into a
// Store, in the order the encoder will read them.
//
// Frames are named by a dense index over the sorted distinct timesteps,
// never by the timestep itself, so the video plays in time order even if
// the trajectory was saved out of order.
package frames

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"

	abp "github.com/rmera/abpmovie"
	"github.com/rmera/abpmovie/render"
	"golang.org/x/sync/errgroup"
)

//Default marker sizes, and the marker outlines of each video.
const (
	StandardMarker = 5
	TrackingMarker = 8
)

var (
	StandardOutline color.Color = color.NRGBA{B: 139, A: 255} //dark blue
	TrackingOutline color.Color = color.White
)

// Artifact is a rendered frame.
type Artifact struct {
	Index    int
	Timestep int32
	Path     string
}

// Job is one video's worth of frames. Selection is nil for the standard
// video, where every particle is drawn and colored by height.
type Job struct {
	Trajectory *abp.Trajectory
	Geometry   abp.Geometry
	Selection  *abp.Selection
	Renderer   render.Renderer
	Store      *Store
	Workers    int     //defaults to the number of CPUs
	MarkerSize float64 //defaults to StandardMarker or TrackingMarker
	Logger     *slog.Logger
}

// Title returns the title of the frame for timestep.
func (J *Job) Title(timestep int32) string {
	if J.Selection != nil {
		return fmt.Sprintf("Particle Tracking - %d Particles - Frame %d", J.Selection.Len(), timestep)
	}
	return fmt.Sprintf("Active Brownian Particles - Frame %d", timestep)
}

// Scene builds the scene for timestep from the frames (file-order
// indexes) that carry it.
func (J *Job) Scene(timestep int32, frames []int) *render.Scene {
	S := &render.Scene{
		Title:      J.Title(timestep),
		Geometry:   J.Geometry,
		MarkerSize: J.MarkerSize,
		Outline:    StandardOutline,
	}
	if J.Selection != nil {
		S.Outline = TrackingOutline
		if S.MarkerSize <= 0 {
			S.MarkerSize = TrackingMarker
		}
	} else {
		S.ColorBar = "Z Position"
		if S.MarkerSize <= 0 {
			S.MarkerSize = StandardMarker
		}
	}
	for _, fi := range frames {
		f := J.Trajectory.Frame(fi)
		for id, pos := range f.Pos {
			if J.Selection == nil {
				S.Points = append(S.Points, render.Point{Pos: pos, ID: id})
				continue
			}
			if !J.Selection.Has(id) {
				continue
			}
			S.Points = append(S.Points, render.Point{Pos: pos, ID: id, Color: J.Selection.Colors[id]})
		}
	}
	return S
}

//byTimestep groups the file-order frame indexes by timestep.
func byTimestep(T *abp.Trajectory) map[int32][]int {
	ret := make(map[int32][]int)
	for i := 0; i < T.Len(); i++ {
		ts := T.Frame(i).Timestep
		ret[ts] = append(ret[ts], i)
	}
	return ret
}

// Write renders S with R into the file name. The file is synced to
// storage before Write returns. A file that failed to render is left
// where it is.
func Write(R render.Renderer, S *render.Scene, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	err = render.Quiet(func() error { return R.Render(S, w) })
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = f.Sync()
	}
	if err2 := f.Close(); err == nil {
		err = err2
	}
	return err
}

// Sequence renders every distinct timestep of the job's trajectory, in
// ascending order, into the job's store. Frames are rendered concurrently
// by up to Workers goroutines, each writing its own file; Sequence returns
// after all of them finished. The first frame that fails aborts the run,
// with an *abp.RenderError; the frames already written are kept.
func Sequence(ctx context.Context, J Job) ([]Artifact, error) {
	if J.Trajectory == nil || J.Renderer == nil || J.Store == nil {
		return nil, errors.New("frames: trajectory, renderer and store are required")
	}
	logger := J.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := J.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	steps := J.Trajectory.Timesteps()
	groups := byTimestep(J.Trajectory)
	arts := make([]Artifact, len(steps))
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ts := range steps {
		arts[i] = Artifact{Index: i, Timestep: ts, Path: J.Store.Path(i)}
		art := arts[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := Write(J.Renderer, J.Scene(art.Timestep, groups[art.Timestep]), art.Path); err != nil {
				return &abp.RenderError{Index: art.Index, Timestep: art.Timestep, Err: err}
			}
			n := done.Add(1)
			logger.Debug("frame rendered", "index", art.Index, "timestep", art.Timestep)
			if n%10 == 0 {
				logger.Info(fmt.Sprintf("  Rendered %d/%d frames", n, len(steps)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return arts, nil
}
