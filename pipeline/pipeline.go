/*
 * pipeline.go, part of abpmovie
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

// Package pipeline produces the standard and tracking videos of a
// trajectory: it reads the trajectory and estimates the geometry once,
// and then takes each video through sampling (tracking only), rendering,
// encoding and cleanup.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	abp "github.com/rmera/abpmovie"
	"github.com/rmera/abpmovie/config"
	"github.com/rmera/abpmovie/encode"
	"github.com/rmera/abpmovie/frames"
	"github.com/rmera/abpmovie/render"
	"github.com/rmera/abpmovie/render/gplot"
	"github.com/rmera/abpmovie/traj"
	"golang.org/x/sync/errgroup"
)

// Stage is the state of the generation of one video.
type Stage int

const (
	Idle Stage = iota
	Reading
	Estimating
	Sampling
	Rendering
	Encoding
	Cleanup
	Done
	Failed
)

var stageNames = [...]string{"idle", "reading", "estimating", "sampling", "rendering", "encoding", "cleanup", "done", "failed"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Kind is one of the two videos.
type Kind string

const (
	Standard Kind = "standard"
	Tracking Kind = "tracking"
)

// Encoder assembles a directory of frames into a video. *encode.Assembler
// is the implementation used by the program.
type Encoder interface {
	Check() error
	Encode(ctx context.Context, dir, pattern, output string) error
	Cleanup(dir string) error
}

// Deps are the collaborators of a run.
type Deps struct {
	Renderer render.Renderer
	Encoder  Encoder
	Logger   *slog.Logger
	//Source of the tracking selection. If nil, one is seeded from
	//the configuration or, failing that, from the clock.
	Rand *rand.Rand
	//Trajectory reader, traj.Read if nil.
	Read func(path string) (*abp.Trajectory, error)
}

// NewDeps returns the renderer and encoder described by con.
func NewDeps(con *config.Config, logger *slog.Logger) (Deps, error) {
	timeout, err := con.Timeout()
	if err != nil {
		return Deps{}, err
	}
	R := gplot.New(con.Render.Width, con.Render.Height)
	R.Elevation = con.Render.Elevation
	R.Azimuth = con.Render.Azimuth
	A := encode.NewAssembler()
	A.SetCommand(con.Encoder.Command)
	A.Params = encode.Params{FPS: con.Encoder.FPS, Codec: con.Encoder.Codec, PixFmt: con.Encoder.PixFmt, CRF: con.Encoder.CRF}
	A.Timeout = timeout
	A.Logger = logger
	return Deps{Renderer: R, Encoder: A, Logger: logger}, nil
}

// Result is the outcome of one video.
type Result struct {
	Kind    Kind
	Output  string
	Stage   Stage //Done or Failed
	History []Stage
	Err     error
	Frames  int
	//The frames directory, if it was kept after a failure.
	FramesDir string
}

type video struct {
	res    *Result
	logger *slog.Logger
}

func newVideo(kind Kind, output string, logger *slog.Logger) *video {
	return &video{
		res:    &Result{Kind: kind, Output: output, Stage: Idle, History: []Stage{Idle}},
		logger: logger.With("video", string(kind)),
	}
}

func (v *video) enter(s Stage) {
	v.res.Stage = s
	v.res.History = append(v.res.History, s)
	v.logger.Debug("stage", "stage", s.String())
}

func (v *video) fail(err error) {
	v.res.Err = err
	v.enter(Failed)
	v.logger.Error("video failed", "err", err)
}

// Preflight checks that the encoder, and the renderer if it can tell, are
// usable. It returns an error matching abp.ErrMissingDependency otherwise.
func Preflight(deps Deps) error {
	if deps.Encoder == nil || deps.Renderer == nil {
		return &abp.DependencyError{Name: "pipeline", Err: errors.New("renderer and encoder are required")}
	}
	if err := deps.Encoder.Check(); err != nil {
		return err
	}
	if c, ok := deps.Renderer.(render.Checker); ok {
		if err := c.Check(); err != nil {
			return &abp.DependencyError{Name: "renderer", Err: err}
		}
	}
	return nil
}

//rng returns the random source for the tracking selection.
func rng(con *config.Config, deps Deps, logger *slog.Logger) *rand.Rand {
	if deps.Rand != nil {
		return deps.Rand
	}
	seed := con.Tracking.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		logger.Info("tracking selection seeded from the clock", "seed", seed)
	}
	return rand.New(rand.NewSource(seed))
}

// Run produces the videos requested in con, which must be valid. The
// returned results are in the order standard, tracking, for the requested
// videos. The error is nil only if every requested video was produced.
// A failure in the pre-flight checks is returned before anything is read,
// with no results.
func Run(ctx context.Context, con *config.Config, deps Deps) ([]*Result, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	read := deps.Read
	if read == nil {
		read = traj.Read
	}
	vertical, err := con.Vertical()
	if err != nil {
		return nil, err
	}
	if err := Preflight(deps); err != nil {
		return nil, err
	}
	var videos []*video
	if con.Pipeline.Standard {
		videos = append(videos, newVideo(Standard, con.StandardPath(), logger))
	}
	if con.Pipeline.Tracking {
		videos = append(videos, newVideo(Tracking, con.TrackingPath(), logger))
	}
	results := func() []*Result {
		ret := make([]*Result, len(videos))
		for i, v := range videos {
			ret[i] = v.res
		}
		return ret
	}
	//Reading and estimating are shared, a failure there fails every video.
	shared := func(s Stage) {
		for _, v := range videos {
			v.enter(s)
		}
	}
	sharedFail := func(err error) ([]*Result, error) {
		for _, v := range videos {
			v.fail(err)
		}
		return results(), err
	}

	shared(Reading)
	logger.Info("Loading simulation data...")
	T, err := read(con.Input.Trajectory)
	if err != nil {
		return sharedFail(err)
	}
	logger.Info("Trajectory read", "particles", T.Particles(), "frames", T.Len())

	shared(Estimating)
	G, err := abp.Estimate(T, con.Input.Params, vertical, logger)
	if err != nil {
		return sharedFail(err)
	}
	logger.Info(fmt.Sprintf("Cylinder: radius=%.1f, height=%.1f", G.Radius, G.HeightMax-G.HeightMin),
		"radius_from", G.RadiusSource, "height_from", G.HeightSource)
	logger.Info(fmt.Sprintf("Z-range: [%.1f, %.1f]", G.HeightMin, G.HeightMax))

	var random *rand.Rand
	if con.Pipeline.Tracking {
		random = rng(con, deps, logger)
	}
	job := func(v *video) error {
		produce(ctx, con, deps, v, T, G, random)
		return nil
	}
	if con.Pipeline.Concurrent {
		var g errgroup.Group
		for _, v := range videos {
			v := v
			g.Go(func() error { return job(v) })
		}
		g.Wait()
	} else {
		for _, v := range videos {
			job(v)
		}
	}
	var errs []error
	for _, v := range videos {
		if v.res.Err != nil {
			errs = append(errs, fmt.Errorf("%s video: %w", v.res.Kind, v.res.Err))
		}
	}
	return results(), errors.Join(errs...)
}

//produce takes one video from sampling to the end. The outcome is left in v.res.
func produce(ctx context.Context, con *config.Config, deps Deps, v *video, T *abp.Trajectory, G abp.Geometry, random *rand.Rand) {
	J := frames.Job{
		Trajectory: T,
		Geometry:   G,
		Renderer:   deps.Renderer,
		Workers:    con.Render.Workers,
		MarkerSize: con.Render.StandardMarker,
		Logger:     v.logger,
	}
	steps := len(T.Timesteps())
	if v.res.Kind == Tracking {
		v.enter(Sampling)
		sel, err := abp.Sample(T.IDs(), con.Tracking.Fraction, random)
		if err != nil {
			v.fail(err)
			return
		}
		J.Selection = sel
		J.MarkerSize = con.Render.TrackingMarker
		v.logger.Info(fmt.Sprintf("Generating tracking visualization (%d particles, %.0f%%)...", sel.Len(), con.Tracking.Fraction*100),
			"frames", steps, "ids", sel.IDs)
	} else {
		v.logger.Info(fmt.Sprintf("Generating standard visualization (%d frames)...", steps))
	}

	v.enter(Rendering)
	store, err := frames.NewStore(con.Output.FramesDir, "abpmovie-"+string(v.res.Kind), steps)
	if err != nil {
		v.fail(err)
		return
	}
	J.Store = store
	arts, err := frames.Sequence(ctx, J)
	if err != nil {
		v.res.FramesDir = store.Dir()
		v.fail(err)
		return
	}
	v.res.Frames = len(arts)

	v.enter(Encoding)
	v.logger.Info("Creating MP4: " + v.res.Output)
	if err := deps.Encoder.Encode(ctx, store.Dir(), store.Pattern(), v.res.Output); err != nil {
		v.res.FramesDir = store.Dir()
		v.fail(err)
		return
	}
	v.logger.Info("Created: " + v.res.Output)

	v.enter(Cleanup)
	if err := deps.Encoder.Cleanup(store.Dir()); err != nil {
		v.logger.Warn("could not remove frames", "dir", store.Dir(), "err", err)
		v.res.FramesDir = store.Dir()
	}
	v.enter(Done)
}
