package game

import (
	"math"

	"github.com/pkg/errors"
)

// Profile names a terrain generation preset.
type Profile string

const (
	ProfileLongFunc Profile = "longfunc"
	ProfileSine     Profile = "sine"
	ProfileFlat     Profile = "flat"
)

// Terrain is a heightmap with one sample per integer x in [0, width].
// Samples are surface y coordinates, so a larger value is a lower surface.
type Terrain struct {
	width  int
	height int
	ys     []float64
}

// NewTerrain copies ys into a terrain. len(ys) must be width+1.
func NewTerrain(width, height int, ys []float64) (*Terrain, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("terrain: invalid screen %dx%d", width, height)
	}
	if len(ys) != width+1 {
		return nil, errors.Errorf("terrain: got %d samples, want %d", len(ys), width+1)
	}
	t := &Terrain{width: width, height: height, ys: make([]float64, len(ys))}
	for i, y := range ys {
		t.ys[i] = t.clamp(y)
	}
	return t, nil
}

// NewFlatTerrain builds a level surface at y.
func NewFlatTerrain(width, height int, y float64) (*Terrain, error) {
	ys := make([]float64, width+1)
	for i := range ys {
		ys[i] = y
	}
	return NewTerrain(width, height, ys)
}

// GenerateTerrain seeds a terrain from a closed-form profile offset by ground.
func GenerateTerrain(width, height int, profile Profile, ground float64) (*Terrain, error) {
	h := float64(height)
	ys := make([]float64, width+1)
	switch profile {
	case ProfileFlat:
		for i := range ys {
			ys[i] = h - ground
		}
	case ProfileSine:
		for i := range ys {
			ys[i] = math.Sin(float64(i)*math.Pi/180)*80 + h - 2*ground
		}
	case ProfileLongFunc, "":
		for i := range ys {
			// sampled one step to the right so ln never sees zero
			x := float64(i+1) / 100
			ys[i] = 10*(math.Log(x*x)*math.Sin(x)+math.Log(math.Pow(x, 4))*math.Sin(2*x)-math.Cos(x)) + h - 2*ground
		}
	default:
		return nil, errors.Errorf("terrain: unknown profile %q", profile)
	}
	return NewTerrain(width, height, ys)
}

func (t *Terrain) Width() int  { return t.width }
func (t *Terrain) Height() int { return t.height }

// Floor is the largest y a sample may take.
func (t *Terrain) Floor() float64 {
	return float64(t.height) - TerrainMargin
}

// HeightAt returns the surface y at x, or false when x is outside [0, width].
func (t *Terrain) HeightAt(x int) (float64, bool) {
	if x < 0 || x > t.width {
		return 0, false
	}
	return t.ys[x], true
}

// Samples returns a copy of all surface samples.
func (t *Terrain) Samples() []float64 {
	out := make([]float64, len(t.ys))
	copy(out, t.ys)
	return out
}

// Deform carves a crater around (cx, cy). Samples strictly within radius of cx whose
// surface lies at or above cy are pushed down by radius*cos of their angle from the
// vertical through the impact, then the whole profile is smoothed.
func (t *Terrain) Deform(cx, cy, radius float64) {
	lo := int(math.Floor(cx - radius))
	hi := int(math.Ceil(cx + radius))
	if lo < 0 {
		lo = 0
	}
	if hi > t.width {
		hi = t.width
	}
	for x := lo; x <= hi; x++ {
		fx := float64(x)
		if fx <= cx-radius || fx >= cx+radius {
			continue
		}
		y := t.ys[x]
		if y > cy {
			continue
		}
		angle := math.Pi / 2
		if y != cy {
			angle = math.Atan((fx - cx) / (y - cy))
		}
		t.ys[x] = t.clamp(y + radius*math.Cos(angle))
	}
	t.Smooth(SmoothPasses)
}

// Smooth runs corner-cutting passes over adjacent sample pairs, left to right.
// Not area preserving.
func (t *Terrain) Smooth(passes int) {
	for p := 0; p < passes; p++ {
		for i := 0; i < len(t.ys)-1; i++ {
			a, b := t.ys[i], t.ys[i+1]
			t.ys[i] = 0.75*a + 0.25*b
			t.ys[i+1] = 0.25*a + 0.75*b
		}
	}
}

func (t *Terrain) clamp(y float64) float64 {
	if y < 0 {
		return 0
	}
	if f := t.Floor(); y > f {
		return f
	}
	return y
}
