package abp

import (
	"fmt"
	"image/color"
	"math"
	"math/rand"

	colorful "github.com/lucasb-eyer/go-colorful"
)

//Saturation and lightness of the tracking colors.
const (
	trackSaturation = 0.70
	trackLightness  = 0.50
)

// Selection is the set of tracked particles, in the order they were
// drawn, with the color assigned to each.
type Selection struct {
	IDs    []int
	Colors map[int]color.RGBA
}

// Len returns the number of tracked particles.
func (S *Selection) Len() int {
	return len(S.IDs)
}

// Has returns true if id is tracked.
func (S *Selection) Has(id int) bool {
	_, ok := S.Colors[id]
	return ok
}

// TrackedCount returns max(1, floor(fraction*n)).
func TrackedCount(n int, fraction float64) int {
	c := int(math.Floor(fraction * float64(n)))
	if c < 1 {
		c = 1
	}
	if c > n {
		c = n
	}
	return c
}

// HueColor returns the color for the i-th of n tracked particles: the hue
// is 360*i/n degrees, at 70% saturation and 50% lightness.
func HueColor(i, n int) color.RGBA {
	h := 360 * float64(i) / float64(n)
	r, g, b := colorful.Hsl(h, trackSaturation, trackLightness).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Sample draws max(1, floor(fraction*len(ids))) distinct identifiers from
// ids, uniformly and without replacement, using rng. Colors depend on the
// position of each identifier in the draw, so they are only reproducible
// if rng is seeded with a fixed value. Repeated identifiers in ids count once.
func Sample(ids []int, fraction float64, rng *rand.Rand) (*Selection, error) {
	if !(fraction > 0 && fraction <= 1) {
		return nil, fmt.Errorf("tracking fraction must be in (0,1], got %g", fraction)
	}
	if rng == nil {
		return nil, fmt.Errorf("Sample: nil random source")
	}
	pool := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, v := range ids {
		if !seen[v] {
			seen[v] = true
			pool = append(pool, v)
		}
	}
	if len(pool) == 0 {
		return nil, ErrEmptyPopulation
	}
	n := TrackedCount(len(pool), fraction)
	//partial Fisher-Yates, the first n elements are the draw.
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	S := &Selection{IDs: pool[:n:n], Colors: make(map[int]color.RGBA, n)}
	for i, id := range S.IDs {
		S.Colors[id] = HueColor(i, n)
	}
	return S, nil
}
