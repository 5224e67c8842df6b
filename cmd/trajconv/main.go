// trajconv converts a trajectory, binary or CSV, into the binary format,
// compressed if the output name ends in .zst or .gz, and prints a summary
// with the distribution of particle heights.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rmera/abpmovie/histo"
	"github.com/rmera/abpmovie/traj"
	"github.com/rmera/abpmovie/traj/bin"
)

func main() {
	in := flag.String("in", "", "Trajectory to read. The .csv file next to it is used if it doesn't exist.")
	out := flag.String("out", "", "Binary trajectory to write. Only a summary is printed if empty.")
	bins := flag.Int("bins", 10, "Bins in the height histogram. 0 skips it.")
	normalize := flag.Bool("normalize", false, "Print the height histogram as fractions of the particles binned.")
	asJSON := flag.Bool("json", false, "Print the height summary as JSON.")
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if *in == "" {
		logger.Error("an input trajectory is needed (-in)")
		os.Exit(1)
	}
	T, used, err := traj.ReadWith(*in, traj.Probes)
	if err != nil {
		logger.Error("reading trajectory", "err", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d particles, %d frames, %d distinct timesteps\n", used, T.Particles(), T.Len(), len(T.Timesteps()))
	if ext, ok := T.Extent(); ok {
		fmt.Printf("max |x|,|y|: %.3f  z: [%.3f, %.3f]\n", ext.MaxXY, ext.MinZ, ext.MaxZ)
	}
	if *bins > 0 {
		S, err := histo.Heights(T, *bins)
		if err != nil {
			logger.Warn("no height histogram", "err", err)
		} else {
			if *normalize {
				S.Heights.Normalize()
			}
			if *asJSON {
				j, err := json.Marshal(S)
				if err != nil {
					logger.Error("writing height summary", "err", err)
					os.Exit(1)
				}
				fmt.Println(string(j))
			} else {
				fmt.Printf("z mean: %.3f  std: %.3f  (%d heights)\n%s\n", S.Mean, S.StdDev, S.Heights.Total(), S.Heights)
			}
		}
	}
	if *out == "" {
		return
	}
	if err := bin.Write(*out, T); err != nil {
		logger.Error("writing trajectory", "file", *out, "err", err)
		os.Exit(1)
	}
	logger.Info("Created: " + *out)
}
