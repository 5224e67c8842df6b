// abpmovie renders the standard and tracking videos of an active Brownian
// particle trajectory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	abp "github.com/rmera/abpmovie"
	"github.com/rmera/abpmovie/config"
	"github.com/rmera/abpmovie/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFile, input, params, out, vertical string
		seed                                     int64
		verbose, example                         bool
	)
	flag.StringVar(&configFile, "config", "", "Configuration file. Defaults are used for the values it doesn't set.")
	flag.StringVar(&input, "input", "", "Trajectory file, overrides [Input] Trajectory.")
	flag.StringVar(&params, "params", "", "Simulation parameter file, overrides [Input] Params.")
	flag.StringVar(&out, "out", "", "Output directory, overrides [Output] Dir.")
	flag.StringVar(&vertical, "vertical", "", "Vertical bounds strategy (data or symmetric), overrides [Render] Vertical.")
	flag.Int64Var(&seed, "seed", 0, "Seed for the tracking selection, overrides [Tracking] Seed.")
	flag.BoolVar(&verbose, "v", false, "Log debugging information.")
	flag.BoolVar(&example, "ExampleConfig", false, "Prints an example configuration file to stdout and exits.")
	flag.Parse()

	if example {
		fmt.Println(config.Example)
		return 0
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	con := config.Default()
	if configFile != "" {
		var err error
		if con, err = config.Read(configFile); err != nil {
			logger.Error("reading configuration", "file", configFile, "err", err)
			return 1
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			con.Input.Trajectory = input
		case "params":
			con.Input.Params = params
		case "out":
			con.Output.Dir = out
		case "vertical":
			con.Render.Vertical = vertical
		case "seed":
			con.Tracking.Seed = seed
		}
	})
	if err := con.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	deps, err := pipeline.NewDeps(con, logger)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Active Particles 3D - MP4 Video Generator")
	results, err := pipeline.Run(ctx, con, deps)
	for _, r := range results {
		if r.Stage == pipeline.Done {
			logger.Info("video produced", "video", string(r.Kind), "file", r.Output, "frames", r.Frames)
			continue
		}
		attrs := []any{"video", string(r.Kind), "stage", r.History[len(r.History)-2].String()}
		if r.FramesDir != "" {
			attrs = append(attrs, "frames_kept_in", r.FramesDir)
		}
		logger.Error("video not produced", attrs...)
		var ee *abp.EncodeError
		if errors.As(r.Err, &ee) {
			fmt.Fprintln(os.Stderr, ee.Diagnostics)
		}
	}
	if err != nil {
		if errors.Is(err, abp.ErrMissingDependency) {
			logger.Error("pre-flight check failed", "err", err)
		} else if len(results) == 0 {
			logger.Error("run failed", "err", err)
		}
		return 1
	}
	logger.Info("MP4 generation complete!", "dir", con.Output.Dir)
	return 0
}
