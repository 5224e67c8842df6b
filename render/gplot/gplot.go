/*
 * gplot.go, part of abpmovie
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

// Package gplot renders scenes to PNG images with gonum/plot. The 3D scene
// is projected by a fixed orthographic camera; points are drawn from the
// farthest to the nearest, so nearer particles cover farther ones.
package gplot

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"

	"github.com/rmera/abpmovie/render"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

//Defaults. The camera angles, in degrees, give a view similar to the
//default 3D view of most plotting programs.
const (
	DefWidth     = 1920
	DefHeight    = 1080
	DefElevation = 25
	DefAzimuth   = 45
	dpi          = 72 //one point per pixel
	barWidth     = 140 //points
	titleSpace   = 40  //points
)

var (
	boxColor      = color.NRGBA{R: 90, G: 90, B: 90, A: 255}
	cylinderColor = color.NRGBA{R: 128, G: 128, B: 128, A: 40}
)

// Renderer draws scenes with gonum/plot. A Renderer has no mutable state
// and can be used from several goroutines at once.
type Renderer struct {
	Width     int //pixels
	Height    int
	Elevation float64 //degrees
	Azimuth   float64
}

// New returns a renderer producing width×height images with the default camera.
func New(width, height int) *Renderer {
	if width <= 0 {
		width = DefWidth
	}
	if height <= 0 {
		height = DefHeight
	}
	return &Renderer{Width: width, Height: height, Elevation: DefElevation, Azimuth: DefAzimuth}
}

//camera projects scene coordinates, previously scaled so the scene box is
//a unit cube centered at the origin, onto the screen.
type camera struct {
	azim r3.Rotation
	elev r3.Rotation
}

func newCamera(elevation, azimuth float64) camera {
	d := math.Pi / 180
	return camera{
		azim: r3.NewRotation(-azimuth*d, r3.Vec{Z: 1}),
		elev: r3.NewRotation(elevation*d, r3.Vec{Y: 1}),
	}
}

//project returns the screen coordinates of p, and its depth.
//Larger depths are nearer to the viewer.
func (c camera) project(p r3.Vec) (x, y, depth float64) {
	q := c.elev.Rotate(c.azim.Rotate(p))
	return q.Y, q.Z, q.X
}

//cube maps the scene box onto the unit cube, so every axis
//gets the same length on screen.
type cube struct {
	center, size r3.Vec
}

func newCube(lo, hi r3.Vec) cube {
	size := r3.Sub(hi, lo)
	for _, v := range []*float64{&size.X, &size.Y, &size.Z} {
		if *v <= 0 {
			*v = 1
		}
	}
	return cube{center: r3.Scale(0.5, r3.Add(lo, hi)), size: size}
}

func (c cube) scale(p r3.Vec) r3.Vec {
	p = r3.Sub(p, c.center)
	return r3.Vec{X: p.X / c.size.X, Y: p.Y / c.size.Y, Z: p.Z / c.size.Z}
}

//view combines cube and camera.
type view struct {
	cube
	camera
}

func (v view) xy(p r3.Vec) (plotter.XY, float64) {
	x, y, d := v.project(v.scale(p))
	return plotter.XY{X: x, Y: y}, d
}

//outlined draws a filled circle with an optional outline.
type outlined struct {
	line  color.Color
	width vg.Length
}

func (o outlined) DrawGlyph(c *draw.Canvas, sty draw.GlyphStyle, pt vg.Point) {
	draw.CircleGlyph{}.DrawGlyph(c, sty, pt)
	if o.line == nil {
		return
	}
	c.SetLineStyle(draw.LineStyle{Color: o.line, Width: o.width})
	var p vg.Path
	p.Move(vg.Point{X: pt.X + sty.Radius, Y: pt.Y})
	p.Arc(pt, sty.Radius, 0, 2*math.Pi)
	p.Close()
	c.Stroke(p)
}

//heightMap returns the colormap used for points without their own color.
func heightMap(S *render.Scene) palette.ColorMap {
	cm := moreland.SmoothBlueRed()
	lo, hi := S.Geometry.HeightMin, S.Geometry.HeightMax
	if !(hi > lo) {
		hi = lo + 1
	}
	cm.SetMin(lo)
	cm.SetMax(hi)
	return cm
}

func colorAt(cm palette.ColorMap, v float64) color.Color {
	v = math.Max(cm.Min(), math.Min(cm.Max(), v))
	c, err := cm.At(v)
	if err != nil {
		return color.Black
	}
	return c
}

func addLine(p *plot.Plot, xys plotter.XYs, col color.Color, width vg.Length) error {
	l, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	l.LineStyle.Color = col
	l.LineStyle.Width = width
	p.Add(l)
	return nil
}

//corner returns the i-th corner of the box; bits 0, 1 and 2 of i
//select the high end of x, y and z.
func corner(lo, hi r3.Vec, i int) r3.Vec {
	c := lo
	if i&1 != 0 {
		c.X = hi.X
	}
	if i&2 != 0 {
		c.Y = hi.Y
	}
	if i&4 != 0 {
		c.Z = hi.Z
	}
	return c
}

//box draws the edges of the scene box and labels the axes.
func box(p *plot.Plot, v view, lo, hi r3.Vec) error {
	at := func(i int) r3.Vec { return corner(lo, hi, i) }
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			if i&bit != 0 {
				continue
			}
			a, _ := v.xy(at(i))
			b, _ := v.xy(at(i | bit))
			if err := addLine(p, plotter.XYs{a, b}, boxColor, vg.Points(0.5)); err != nil {
				return err
			}
		}
	}
	mid := func(a, b r3.Vec) plotter.XY {
		xy, _ := v.xy(r3.Scale(0.5, r3.Add(a, b)))
		return xy
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs: plotter.XYs{
			mid(at(0), at(1)),
			mid(at(0), at(2)),
			mid(at(0), at(4)),
		},
		Labels: []string{
			fmt.Sprintf("X [%.1f, %.1f]", lo.X, hi.X),
			fmt.Sprintf("Y [%.1f, %.1f]", lo.Y, hi.Y),
			fmt.Sprintf("Z [%.1f, %.1f]", lo.Z, hi.Z),
		},
	})
	if err != nil {
		return err
	}
	p.Add(labels)
	return nil
}

func cylinder(p *plot.Plot, v view, S *render.Scene) error {
	rings := S.Cylinder()
	for _, ring := range rings {
		xys := make(plotter.XYs, len(ring))
		for j, q := range ring {
			xys[j], _ = v.xy(q)
		}
		if err := addLine(p, xys, cylinderColor, vg.Points(0.7)); err != nil {
			return err
		}
	}
	for j := 0; j < render.CylinderTheta-1; j++ {
		xys := make(plotter.XYs, len(rings))
		for i, ring := range rings {
			xys[i], _ = v.xy(ring[j])
		}
		if err := addLine(p, xys, cylinderColor, vg.Points(0.7)); err != nil {
			return err
		}
	}
	return nil
}

type projected struct {
	xy    plotter.XY
	depth float64
	color color.Color
}

func points(p *plot.Plot, v view, S *render.Scene, cm palette.ColorMap) error {
	if len(S.Points) == 0 {
		return nil
	}
	pr := make([]projected, len(S.Points))
	for i, pt := range S.Points {
		pr[i].xy, pr[i].depth = v.xy(pt.Pos)
		pr[i].color = pt.Color
		if pt.Color == nil {
			pr[i].color = colorAt(cm, pt.Pos.Z)
		}
	}
	sort.SliceStable(pr, func(i, j int) bool { return pr[i].depth < pr[j].depth })
	xys := make(plotter.XYs, len(pr))
	for i := range pr {
		xys[i] = pr[i].xy
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	radius := vg.Length(S.MarkerSize / 2)
	if radius <= 0 {
		radius = vg.Points(2.5)
	}
	shape := outlined{line: S.Outline, width: vg.Points(0.5)}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{Color: pr[i].color, Radius: radius, Shape: shape}
	}
	p.Add(sc)
	return nil
}

//fit sets the ranges of p so the projection fills an area of the given
//aspect ratio (width/height) without distortion.
func fit(p *plot.Plot, v view, lo, hi r3.Vec, aspect float64) {
	xmin, ymin := math.Inf(1), math.Inf(1)
	xmax, ymax := math.Inf(-1), math.Inf(-1)
	for i := 0; i < 8; i++ {
		xy, _ := v.xy(corner(lo, hi, i))
		xmin, xmax = math.Min(xmin, xy.X), math.Max(xmax, xy.X)
		ymin, ymax = math.Min(ymin, xy.Y), math.Max(ymax, xy.Y)
	}
	w, h := (xmax-xmin)*1.05, (ymax-ymin)*1.05
	if w/h < aspect {
		w = h * aspect
	} else {
		h = w / aspect
	}
	cx, cy := (xmin+xmax)/2, (ymin+ymax)/2
	p.X.Min, p.X.Max = cx-w/2, cx+w/2
	p.Y.Min, p.Y.Max = cy-h/2, cy+h/2
}

// Plot builds the plot for S, without the colorbar. The returned
// colormap is nil if no point is colored by height.
func (R *Renderer) Plot(S *render.Scene) (*plot.Plot, palette.ColorMap, error) {
	lo, hi := S.Box()
	v := view{cube: newCube(lo, hi), camera: newCamera(R.Elevation, R.Azimuth)}
	p := plot.New()
	p.Title.Text = S.Title
	p.Title.Padding = 3 * vg.Millimeter
	p.HideAxes()
	var cm palette.ColorMap
	if S.HeightColored() {
		cm = heightMap(S)
	}
	if err := box(p, v, lo, hi); err != nil {
		return nil, nil, err
	}
	if err := cylinder(p, v, S); err != nil {
		return nil, nil, err
	}
	if err := points(p, v, S, cm); err != nil {
		return nil, nil, err
	}
	width := float64(R.Width)
	if cm != nil {
		width -= barWidth
	}
	fit(p, v, lo, hi, width/math.Max(1, float64(R.Height)-titleSpace))
	return p, cm, nil
}

func colorBar(cm palette.ColorMap, label string) *plot.Plot {
	p := plot.New()
	p.HideX()
	p.Y.Label.Text = label
	p.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	return p
}

// Render draws S and writes it to w as a PNG image.
func (R *Renderer) Render(S *render.Scene, w io.Writer) error {
	if S == nil {
		panic("gplot: nil scene")
	}
	p, cm, err := R.Plot(S)
	if err != nil {
		return err
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Points(float64(R.Width)), vg.Points(float64(R.Height))),
		vgimg.UseDPI(dpi),
		vgimg.UseBackgroundColor(color.White),
	)
	dc := draw.New(c)
	if cm == nil {
		p.Draw(dc)
	} else {
		p.Draw(draw.Crop(dc, 0, -barWidth, 0, 0))
		bar := draw.Crop(dc, vg.Length(R.Width)-barWidth+20, -30, titleSpace, -2*titleSpace)
		colorBar(cm, S.ColorBar).Draw(bar)
	}
	_, err = vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	return err
}

// Check renders a small scene and discards it. It fails if gonum/plot
// can't draw, for instance because its fonts can't be loaded.
func (R *Renderer) Check() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gplot: %v", r)
		}
	}()
	probe := &Renderer{Width: 480, Height: 320, Elevation: R.Elevation, Azimuth: R.Azimuth}
	S := &render.Scene{Title: "check", ColorBar: "z", Points: []render.Point{{}}}
	S.Geometry.Radius = 1
	S.Geometry.HeightMax = 1
	return probe.Render(S, io.Discard)
}
