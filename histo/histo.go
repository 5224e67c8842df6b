// Package histo bins particle heights, as a quick look at how a
// trajectory fills its cylinder.
package histo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	abp "github.com/rmera/abpmovie"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Data is a histogram over fixed dividers. Bin i holds the values v with
// dividers[i] <= v < dividers[i+1]; values outside are omitted.
type Data struct {
	normalized bool
	total      int
	dividers   []float64
	histo      []float64
}

// NewData returns a histogram with the given dividers, filled with rawdata,
// which can be nil. rawdata is sorted in place.
func NewData(dividers []float64, rawdata []float64) *Data {
	d := new(Data)
	d.dividers = make([]float64, len(dividers))
	copy(d.dividers, dividers)
	d.histo = make([]float64, len(dividers)-1)
	if rawdata != nil {
		d.ReHisto(rawdata)
	}
	return d
}

// ReHisto replaces the contents of the histogram with the binned rawdata.
func (D *Data) ReHisto(rawdata []float64) {
	sort.Float64s(rawdata)
	//stat.Histogram panics on values off limits.
	maxi := sort.SearchFloat64s(rawdata, D.dividers[len(D.dividers)-1])
	mini := sort.SearchFloat64s(rawdata, D.dividers[0])
	rawdata = rawdata[mini:maxi]
	D.total = len(rawdata)
	D.normalized = false
	D.histo = stat.Histogram(nil, D.dividers, rawdata, nil)
}

func (D *Data) Normalized() bool {
	return D.normalized
}

// Normalize scales the histogram so it sums to 1. It does nothing on an
// empty or already normalized histogram.
func (D *Data) Normalize() {
	if D.total <= 0 || D.normalized {
		return
	}
	floats.Scale(1/float64(D.total), D.histo)
	D.normalized = true
}

// Total is the number of values binned.
func (D *Data) Total() int {
	return D.total
}

// View returns the bins, not a copy.
func (D *Data) View() []float64 {
	return D.histo
}

// String prints one line per bin, with a bar proportional to its count.
func (D *Data) String() string {
	max := floats.Max(D.histo)
	lines := make([]string, 0, len(D.histo))
	for i, v := range D.histo {
		bar := 0
		if max > 0 {
			bar = int(40 * v / max)
		}
		lines = append(lines, fmt.Sprintf("%8.2f - %8.2f %9.3f %s", D.dividers[i], D.dividers[i+1], v, strings.Repeat("#", bar)))
	}
	return strings.Join(lines, "\n")
}

func (D *Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Normalized bool      `json:"normalized"`
		Total      int       `json:"total"`
		Dividers   []float64 `json:"dividers"`
		Histo      []float64 `json:"histo"`
	}{
		Normalized: D.normalized,
		Total:      D.total,
		Dividers:   D.dividers,
		Histo:      D.histo,
	})
}

// Summary is the height distribution of a trajectory.
type Summary struct {
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Heights *Data   `json:"heights"`
}

// Heights bins the z coordinate of every particle in every frame of T into
// bins equal bins spanning the observed range.
func Heights(T *abp.Trajectory, bins int) (*Summary, error) {
	if bins < 1 {
		return nil, fmt.Errorf("histo: %d bins requested", bins)
	}
	ext, ok := T.Extent()
	if !ok {
		return nil, errors.New("histo: empty trajectory")
	}
	z := make([]float64, 0, T.Len()*T.Particles())
	for i := 0; i < T.Len(); i++ {
		for _, p := range T.Frame(i).Pos {
			z = append(z, p.Z)
		}
	}
	S := new(Summary)
	S.Mean, S.StdDev = stat.MeanStdDev(z, nil)
	if len(z) < 2 {
		//a single value has no spread, and NaN can't be written as JSON.
		S.StdDev = 0
	}
	//the last divider is nudged so the highest particle is counted.
	hi := ext.MaxZ
	if hi == ext.MinZ {
		hi++
	}
	dividers := floats.Span(make([]float64, bins+1), ext.MinZ, hi)
	dividers[bins] = hi + 1e-9*(1+math.Abs(hi))
	S.Heights = NewData(dividers, z)
	return S, nil
}

