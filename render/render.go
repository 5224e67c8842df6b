/*
 * render.go, part of abpmovie
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

// Package render describes the scenes that make up a video, and the
// interface of the backends that turn a scene into a still image.
package render

import (
	"image/color"
	"io"
	"log"
	"math"
	"sync"

	abp "github.com/rmera/abpmovie"
	"gonum.org/v1/gonum/spatial/r3"
)

//Resolution of the reference cylinder.
const (
	CylinderTheta = 50
	CylinderZ     = 30
)

// Point is one particle in a scene. If Color is nil, the backend colors
// the point by its height, with a colormap.
type Point struct {
	Pos   r3.Vec
	ID    int
	Color color.Color
}

// Scene is everything needed to draw one frame.
type Scene struct {
	Title    string
	Geometry abp.Geometry
	Points   []Point
	//Marker size in pixels.
	MarkerSize float64
	//Color of the marker outline. nil means no outline.
	Outline color.Color
	//Label of the colorbar shown for points colored by height.
	//The colorbar is drawn only if at least one point has a nil Color.
	ColorBar string
}

// Box returns the corners of the axis ranges of the scene: x and y span
// 1.1 times the radius on both sides, z spans the height range plus one
// unit on each end.
func (S *Scene) Box() (lo, hi r3.Vec) {
	r := S.Geometry.Radius * abp.RadiusPadding
	lo = r3.Vec{X: -r, Y: -r, Z: S.Geometry.HeightMin - 1}
	hi = r3.Vec{X: r, Y: r, Z: S.Geometry.HeightMax + 1}
	return lo, hi
}

// HeightColored returns true if any of the points is to be colored by height.
func (S *Scene) HeightColored() bool {
	for _, p := range S.Points {
		if p.Color == nil {
			return true
		}
	}
	return false
}

// Cylinder returns the wireframe of the reference cylinder as CylinderZ
// rings of CylinderTheta points, from the bottom to the top of the
// height range. The first and last point of each ring coincide.
func (S *Scene) Cylinder() [][]r3.Vec {
	g := S.Geometry
	rings := make([][]r3.Vec, CylinderZ)
	for i := range rings {
		z := g.HeightMin
		if CylinderZ > 1 {
			z += (g.HeightMax - g.HeightMin) * float64(i) / float64(CylinderZ-1)
		}
		ring := make([]r3.Vec, CylinderTheta)
		for j := range ring {
			t := 2 * math.Pi * float64(j) / float64(CylinderTheta-1)
			ring[j] = r3.Vec{X: g.Radius * math.Cos(t), Y: g.Radius * math.Sin(t), Z: z}
		}
		rings[i] = ring
	}
	return rings
}

// Renderer draws a scene as a still image and writes it to w.
// Implementations must be safe for concurrent use.
type Renderer interface {
	Render(scene *Scene, w io.Writer) error
}

// Checker is implemented by renderers that can tell, before any work is
// done, whether they are able to render at all.
type Checker interface {
	Check() error
}

// Func adapts an ordinary function to the Renderer interface.
type Func func(scene *Scene, w io.Writer) error

func (f Func) Render(scene *Scene, w io.Writer) error {
	return f(scene, w)
}

var quiet struct {
	sync.Mutex
	depth int
	saved io.Writer
}

// Quiet runs fn with the output of the standard logger discarded. Calls
// can be nested and can run concurrently: the previous output is restored
// when the last running Quiet returns, even if fn panics.
func Quiet(fn func() error) error {
	quiet.Lock()
	if quiet.depth == 0 {
		quiet.saved = log.Writer()
		log.SetOutput(io.Discard)
	}
	quiet.depth++
	quiet.Unlock()
	defer func() {
		quiet.Lock()
		quiet.depth--
		if quiet.depth == 0 {
			log.SetOutput(quiet.saved)
			quiet.saved = nil
		}
		quiet.Unlock()
	}()
	return fn()
}
