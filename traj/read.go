/*
 * read.go, part of abpmovie
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

// Package traj finds and decodes the trajectory of a simulation run,
// whichever of the supported formats it was saved in.
package traj

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	abp "github.com/rmera/abpmovie"
	"github.com/rmera/abpmovie/traj/bin"
	"github.com/rmera/abpmovie/traj/csv"
)

// Probe is one way of finding a trajectory. Path returns the file the probe
// would read for the requested path, or "" if the probe doesn't apply to it,
// and Decode reads that file.
type Probe struct {
	Format string
	Path   func(requested string) string
	Decode func(name string) (*abp.Trajectory, error)
}

// CSVPath returns path with its extension (if any) replaced by .csv.
// Compression suffixes are removed first, so sim.bin.zst gives sim.csv.
func CSVPath(path string) string {
	if bin.Compressed(path) {
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"
}

func binPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ""
	}
	return path
}

// Probes are tried in order by Read. The first probe whose file exists
// is used; later probes are not tried even if decoding fails.
var Probes = []Probe{
	{Format: "binary", Path: binPath, Decode: bin.Read},
	{Format: "csv", Path: CSVPath, Decode: csv.Read},
}

// Read decodes the trajectory at path, or the CSV file next to it if path
// does not exist. If none of the files exist, the returned error is a
// *abp.NotFoundError listing them.
func Read(path string) (*abp.Trajectory, error) {
	T, _, err := ReadWith(path, Probes)
	return T, err
}

// ReadWith is like Read but tries the given probes, and also returns the
// file that was decoded.
func ReadWith(path string, probes []Probe) (*abp.Trajectory, string, error) {
	tried := make([]string, 0, len(probes))
	for _, p := range probes {
		name := p.Path(path)
		if name == "" || contains(tried, name) {
			continue
		}
		tried = append(tried, name)
		info, err := os.Stat(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, name, err
		}
		if info.IsDir() {
			continue
		}
		T, err := p.Decode(name)
		return T, name, err
	}
	return nil, "", &abp.NotFoundError{Tried: tried}
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}
