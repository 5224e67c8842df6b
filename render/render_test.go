package render

import (
	"bytes"
	"errors"
	"image/color"
	"io"
	"log"
	"math"
	"sync"
	"testing"

	abp "github.com/rmera/abpmovie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func scene() *Scene {
	return &Scene{
		Title:    "test",
		Geometry: abp.Geometry{Radius: 10, HeightMin: -2, HeightMax: 4},
		Points: []Point{
			{Pos: r3.Vec{X: 1}, ID: 0, Color: color.White},
			{Pos: r3.Vec{Y: 1}, ID: 3, Color: color.Black},
		},
	}
}

func TestBox(Te *testing.T) {
	lo, hi := scene().Box()
	assert.InDelta(Te, -11, lo.X, 1e-12)
	assert.InDelta(Te, 11, hi.Y, 1e-12)
	assert.Equal(Te, -3.0, lo.Z)
	assert.Equal(Te, 5.0, hi.Z)
}

func TestCylinder(Te *testing.T) {
	S := scene()
	rings := S.Cylinder()
	require.Len(Te, rings, CylinderZ)
	assert.Equal(Te, -2.0, rings[0][0].Z)
	assert.InDelta(Te, 4.0, rings[CylinderZ-1][0].Z, 1e-12)
	for _, ring := range rings {
		require.Len(Te, ring, CylinderTheta)
		for _, p := range ring {
			assert.InDelta(Te, 10, math.Hypot(p.X, p.Y), 1e-9)
		}
		assert.InDelta(Te, 0, r3.Norm(r3.Sub(ring[0], ring[CylinderTheta-1])), 1e-9)
	}
}

func TestHeightColored(Te *testing.T) {
	S := scene()
	assert.False(Te, S.HeightColored())
	S.Points = append(S.Points, Point{Pos: r3.Vec{Z: 1}})
	assert.True(Te, S.HeightColored())
}

func TestFunc(Te *testing.T) {
	var R Renderer = Func(func(s *Scene, w io.Writer) error {
		_, err := io.WriteString(w, s.Title)
		return err
	})
	var buf bytes.Buffer
	require.NoError(Te, R.Render(scene(), &buf))
	assert.Equal(Te, "test", buf.String())
}

func TestQuiet(Te *testing.T) {
	var out bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&out)
	defer log.SetOutput(prev)

	err := Quiet(func() error {
		log.Print("hidden")
		return Quiet(func() error {
			log.Print("hidden too")
			return errors.New("inner")
		})
	})
	assert.EqualError(Te, err, "inner")
	log.Print("shown")
	assert.NotContains(Te, out.String(), "hidden")
	assert.Contains(Te, out.String(), "shown")

	//the writer is restored after a panic too
	func() {
		defer func() { recover() }()
		Quiet(func() error { panic("boom") })
	}()
	assert.Equal(Te, io.Writer(&out), log.Writer())
}

func TestQuietConcurrent(Te *testing.T) {
	var out bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&out)
	defer log.SetOutput(prev)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Quiet(func() error { return nil })
		}()
	}
	wg.Wait()
	assert.Equal(Te, io.Writer(&out), log.Writer())
}
