/*
 * geometry.go, part of abpmovie.
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
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

// RadiusPadding multiplies the largest |x| or |y| found in the data
// when the radius has to be derived from the positions.
const RadiusPadding = 1.1

//Field positions in the (tab-separated) parameter line.
const (
	paramRadiusField = 6
	paramHeightField = 7
	paramMinFields   = 8
)

// Vertical selects how the height range of the geometry is obtained.
// There is no default: the two strategies give different bounds, and the
// caller must pick one.
type Vertical int

const (
	VerticalUnset     Vertical = iota
	VerticalData               //[min(z), max(z)] over the trajectory
	VerticalSymmetric          //[-height, +height] from the parameter file
)

func (V Vertical) String() string {
	switch V {
	case VerticalData:
		return "data"
	case VerticalSymmetric:
		return "symmetric"
	default:
		return "unset"
	}
}

// ParseVertical converts "data" or "symmetric" into a Vertical.
func ParseVertical(s string) (Vertical, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "data":
		return VerticalData, nil
	case "symmetric":
		return VerticalSymmetric, nil
	}
	return VerticalUnset, fmt.Errorf("unknown vertical bounds strategy %q (want data or symmetric)", s)
}

// Where a geometry value came from.
const (
	FromParams = "parameters"
	FromData   = "data"
)

// Geometry is the reference cylinder the particles are drawn in.
type Geometry struct {
	Radius       float64
	HeightMin    float64
	HeightMax    float64
	RadiusSource string
	HeightSource string
}

// Params are the values this program uses from the simulation parameter file.
type Params struct {
	Radius float64
	Height float64
}

// ParseParams decodes the first line of a parameter file.
// The line is split on tabs; field 6 is the radius and field 7 the height.
func ParseParams(r io.Reader) (Params, error) {
	var p Params
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return p, err
	}
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) < paramMinFields {
		return p, fmt.Errorf("parameter line has %d fields, at least %d needed", len(fields), paramMinFields)
	}
	if p.Radius, err = strconv.ParseFloat(strings.TrimSpace(fields[paramRadiusField]), 64); err != nil {
		return p, fmt.Errorf("radius field: %w", err)
	}
	if p.Height, err = strconv.ParseFloat(strings.TrimSpace(fields[paramHeightField]), 64); err != nil {
		return p, fmt.Errorf("height field: %w", err)
	}
	if math.IsNaN(p.Radius) || math.IsInf(p.Radius, 0) || p.Radius <= 0 {
		return p, fmt.Errorf("radius %v is not a positive number", p.Radius)
	}
	if math.IsNaN(p.Height) || math.IsInf(p.Height, 0) {
		return p, fmt.Errorf("height %v is not a finite number", p.Height)
	}
	return p, nil
}

//probeParams returns the parameters in path, and false if
//they can't be used for any reason. Problems are only warned about.
func probeParams(path string, logger *slog.Logger) (Params, bool) {
	if path == "" {
		return Params{}, false
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Error reading parameters. Using data-based dimensions.", "file", path, "err", err)
		return Params{}, false
	}
	defer f.Close()
	p, err := ParseParams(f)
	if err != nil {
		logger.Warn("Error reading parameters. Using data-based dimensions.", "file", path, "err", err)
		return Params{}, false
	}
	return p, true
}

// Estimate obtains the rendering geometry for T. The radius comes from the
// parameter file in paramPath if it can be used, otherwise from the data.
// The height range follows vertical. A nil logger discards the warnings.
func Estimate(T *Trajectory, paramPath string, vertical Vertical, logger *slog.Logger) (Geometry, error) {
	var g Geometry
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if vertical != VerticalData && vertical != VerticalSymmetric {
		return g, fmt.Errorf("a vertical bounds strategy must be chosen (data or symmetric)")
	}
	if T == nil || T.Len() == 0 {
		return g, ErrEmptyTrajectory
	}
	params, haveParams := probeParams(paramPath, logger)
	ext, haveData := T.Extent()

	switch {
	case haveParams:
		g.Radius = params.Radius
		g.RadiusSource = FromParams
	case haveData:
		g.Radius = RadiusPadding * ext.MaxXY
		g.RadiusSource = FromData
	default:
		return g, fmt.Errorf("no particle positions to derive the radius from: %w", ErrEmptyTrajectory)
	}

	if vertical == VerticalSymmetric {
		if haveParams && params.Height > 0 {
			g.HeightMin, g.HeightMax = -params.Height, params.Height
			g.HeightSource = FromParams
			return g, nil
		}
		logger.Warn("No usable height parameter for symmetric bounds, using the data range")
	}
	if !haveData {
		return g, fmt.Errorf("no particle positions to derive the height range from: %w", ErrEmptyTrajectory)
	}
	g.HeightMin, g.HeightMax = ext.MinZ, ext.MaxZ
	g.HeightSource = FromData
	return g, nil
}
