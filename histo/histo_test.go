package histo

import (
	"encoding/json"
	"strings"
	"testing"

	abp "github.com/rmera/abpmovie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestData(Te *testing.T) {
	rawdata := []float64{1, 6, 3, 2, 4, 5, 7, 6, 3.5, 3, 5, 1, 1, 0, 0, 5, 8, 1, 2, 3, 44, 3, 7, 3, 1, 3, 5, 32, 1, -1}
	D := NewData([]float64{0, 1, 2, 3, 4, 8}, rawdata)
	assert.Equal(Te, []float64{2, 6, 2, 7, 9}, D.View())
	assert.Equal(Te, 26, D.Total())
	assert.Len(Te, strings.Split(D.String(), "\n"), 5)

	D.Normalize()
	assert.True(Te, D.Normalized())
	assert.InDelta(Te, 1.0, floats.Sum(D.View()), 1e-12)
	assert.InDelta(Te, 6.0/26, D.View()[1], 1e-12)
	//a second call changes nothing
	D.Normalize()
	assert.InDelta(Te, 6.0/26, D.View()[1], 1e-12)

	j, err := json.Marshal(D)
	require.NoError(Te, err)
	assert.Contains(Te, string(j), `"normalized":true`)
	assert.Contains(Te, string(j), `"total":26`)

	empty := NewData([]float64{0, 1}, nil)
	empty.Normalize()
	assert.False(Te, empty.Normalized())
}

func TestHeights(Te *testing.T) {
	var frames []abp.Frame
	for ts := int32(0); ts < 2; ts++ {
		f := abp.NewFrame(5)
		f.Timestep = ts
		for i := range f.Pos {
			f.Pos[i] = r3.Vec{Z: float64(i)}
		}
		frames = append(frames, *f)
	}
	T, err := abp.NewTrajectory(abp.Header{Particles: 5, Frames: 2}, frames)
	require.NoError(Te, err)
	S, err := Heights(T, 4)
	require.NoError(Te, err)
	assert.InDelta(Te, 2.0, S.Mean, 1e-12)
	assert.Equal(Te, 10, S.Heights.Total())
	//the highest particles land in the last bin
	assert.Equal(Te, []float64{2, 2, 2, 4}, S.Heights.View())

	_, err = Heights(T, 0)
	assert.Error(Te, err)

	j, err := json.Marshal(S)
	require.NoError(Te, err)
	assert.Contains(Te, string(j), `"mean":2`)
	assert.Contains(Te, string(j), `"heights":{"normalized":false,"total":10`)
}
