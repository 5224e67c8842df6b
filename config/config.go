// Package config holds the settings of an abpmovie run, read from an INI
// file with gcfg. A Config is built once, validated, and passed to the
// pipeline; nothing else in the program keeps settings of its own.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	abp "github.com/rmera/abpmovie"
	"gopkg.in/gcfg.v1"
)

const Example = `# abpmovie configuration file.

[Input]

# Binary trajectory written by the simulation. If it doesn't exist, the
# file with the same name and a .csv extension is read instead.
Trajectory = data/simulation.bin

# Simulation parameter file. Its first line is tab-separated; field 6 is
# the radius of the cylinder and field 7 its height. If the file can't be
# used, the dimensions are obtained from the trajectory.
Params = parameter.txt

[Output]

# Directory where the videos are written.
Dir = figures
Standard = particles_standard.mp4
Tracking = particles_tracked.mp4

# Parent of the temporary frame directories. The system temporary
# directory is used if empty. Frames are removed after a successful
# encoding and kept otherwise.
# FramesDir = temp_frames

[Render]

# How the vertical range of the cylinder is obtained. Required, one of
#   data:      [min(z), max(z)] over the trajectory
#   symmetric: [-height, +height] with the height of the parameter file
Vertical = data

# Frame size in pixels.
Width = 1920
Height = 1080

# Frames rendered at the same time. 0 means one per CPU.
# Workers = 0

# Camera angles, in degrees.
# Elevation = 25
# Azimuth = 45

# Marker diameters, in pixels.
# StandardMarker = 5
# TrackingMarker = 8

[Tracking]

# Fraction of the particles followed in the tracking video, in (0,1].
# At least one particle is always tracked.
Fraction = 0.01

# Seed for the particle selection. The same seed gives the same particles
# and colors. If 0, a seed is taken from the clock and logged.
# Seed = 0

[Encoder]

Command = ffmpeg
FPS = 30
Codec = libx264
PixFmt = yuv420p
CRF = 23

# Time limit for each encoding, as understood by time.ParseDuration
# (e.g. 10m). No limit if empty.
# Timeout = 10m

[Pipeline]

# Videos to produce.
Standard = true
Tracking = true

# Produce both videos at the same time.
# Concurrent = false`

type InputConfig struct {
	Trajectory string
	Params     string
}

type OutputConfig struct {
	Dir       string
	Standard  string
	Tracking  string
	FramesDir string
}

type RenderConfig struct {
	Vertical       string
	Width, Height  int
	Workers        int
	Elevation      float64
	Azimuth        float64
	StandardMarker float64
	TrackingMarker float64
}

type TrackingConfig struct {
	Fraction float64
	Seed     int64
}

type EncoderConfig struct {
	Command string
	FPS     int
	Codec   string
	PixFmt  string
	CRF     int
	Timeout string
}

type PipelineConfig struct {
	Standard   bool
	Tracking   bool
	Concurrent bool
}

// Config is the whole configuration file, one field per section.
type Config struct {
	Input    InputConfig
	Output   OutputConfig
	Render   RenderConfig
	Tracking TrackingConfig
	Encoder  EncoderConfig
	Pipeline PipelineConfig
}

// Default returns the settings used when the configuration file doesn't
// give a value. The vertical strategy has no default.
func Default() *Config {
	return &Config{
		Input:    InputConfig{Trajectory: "data/simulation.bin", Params: "parameter.txt"},
		Output:   OutputConfig{Dir: "figures", Standard: "particles_standard.mp4", Tracking: "particles_tracked.mp4"},
		Render:   RenderConfig{Width: 1920, Height: 1080, Elevation: 25, Azimuth: 45, StandardMarker: 5, TrackingMarker: 8},
		Tracking: TrackingConfig{Fraction: 0.01},
		Encoder:  EncoderConfig{Command: "ffmpeg", FPS: 30, Codec: "libx264", PixFmt: "yuv420p", CRF: 23},
		Pipeline: PipelineConfig{Standard: true, Tracking: true},
	}
}

// Read reads the file name over the defaults. The result is not validated.
func Read(name string) (*Config, error) {
	con := Default()
	if err := gcfg.ReadFileInto(con, name); err != nil {
		return nil, err
	}
	return con, nil
}

// ReadString is like Read, but takes the contents of the file.
func ReadString(s string) (*Config, error) {
	con := Default()
	if err := gcfg.ReadStringInto(con, s); err != nil {
		return nil, err
	}
	return con, nil
}

func (con *Config) ValidTrajectory() bool {
	return con.Input.Trajectory != ""
}

func (con *Config) ValidOutput() bool {
	return con.Output.Dir != "" &&
		(!con.Pipeline.Standard || con.Output.Standard != "") &&
		(!con.Pipeline.Tracking || con.Output.Tracking != "") &&
		!(con.Pipeline.Standard && con.Pipeline.Tracking && con.StandardPath() == con.TrackingPath())
}

func (con *Config) ValidSize() bool {
	return con.Render.Width > 0 && con.Render.Height > 0
}

func (con *Config) ValidWorkers() bool {
	return con.Render.Workers >= 0
}

func (con *Config) ValidFraction() bool {
	return con.Tracking.Fraction > 0 && con.Tracking.Fraction <= 1
}

func (con *Config) ValidEncoder() bool {
	e := con.Encoder
	return e.Command != "" && e.FPS > 0 && e.Codec != "" && e.PixFmt != "" && e.CRF >= 0 && e.CRF <= 63
}

// Validate returns an error listing every invalid value, or nil.
func (con *Config) Validate() error {
	var errs []error
	if !con.ValidTrajectory() {
		errs = append(errs, errors.New("invalid/non-existent 'Input.Trajectory' value"))
	}
	if !con.ValidOutput() {
		errs = append(errs, errors.New("'Output' needs a Dir and distinct, non-empty names for the requested videos"))
	}
	if _, err := con.Vertical(); err != nil {
		errs = append(errs, fmt.Errorf("'Render.Vertical': %w", err))
	}
	if !con.ValidSize() {
		errs = append(errs, fmt.Errorf("invalid frame size %dx%d", con.Render.Width, con.Render.Height))
	}
	if !con.ValidWorkers() {
		errs = append(errs, errors.New("'Render.Workers' can't be negative"))
	}
	if !con.ValidFraction() {
		errs = append(errs, fmt.Errorf("'Tracking.Fraction' must be in (0,1], not %g", con.Tracking.Fraction))
	}
	if !con.ValidEncoder() {
		errs = append(errs, errors.New("invalid 'Encoder' section: Command, FPS>0, Codec, PixFmt and 0<=CRF<=63 are needed"))
	}
	if _, err := con.Timeout(); err != nil {
		errs = append(errs, fmt.Errorf("'Encoder.Timeout': %w", err))
	}
	if !con.Pipeline.Standard && !con.Pipeline.Tracking {
		errs = append(errs, errors.New("no video requested in 'Pipeline'"))
	}
	return errors.Join(errs...)
}

// Vertical returns the vertical bounds strategy.
func (con *Config) Vertical() (abp.Vertical, error) {
	if strings.TrimSpace(con.Render.Vertical) == "" {
		return abp.VerticalUnset, errors.New("not set, it must be data or symmetric")
	}
	return abp.ParseVertical(con.Render.Vertical)
}

// Timeout returns the encoding time limit, 0 if there is none.
func (con *Config) Timeout() (time.Duration, error) {
	if con.Encoder.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(con.Encoder.Timeout)
	if err == nil && d < 0 {
		err = fmt.Errorf("negative duration %s", d)
	}
	return d, err
}

// StandardPath returns the file of the standard video.
func (con *Config) StandardPath() string {
	return filepath.Join(con.Output.Dir, con.Output.Standard)
}

// TrackingPath returns the file of the tracking video.
func (con *Config) TrackingPath() string {
	return filepath.Join(con.Output.Dir, con.Output.Tracking)
}
