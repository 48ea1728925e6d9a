package game

// Explosion grows to MaxRadius and shrinks back to zero.
type Explosion struct {
	ID        EntityID
	X, Y      float64
	Radius    float64
	MaxRadius float64
	Rate      float64 // radius change per elapsed millisecond; negative while shrinking

	Removed bool
}

func NewExplosion(x, y, maxRadius float64) *Explosion {
	return &Explosion{
		X:         x,
		Y:         y,
		Radius:    ExplosionStartRadius,
		MaxRadius: maxRadius,
		Rate:      ExplosionRatePerMs,
	}
}

// Decay advances the pulse by elapsedMs and reports whether it has finished.
func (e *Explosion) Decay(elapsedMs float64) bool {
	e.Radius += e.Rate * elapsedMs
	if e.Rate > 0 && e.Radius >= e.MaxRadius {
		e.Rate = -e.Rate
	}
	if e.Radius <= 0 {
		e.Radius = 0
		e.Removed = true
	}
	return e.Removed
}

func (e *Explosion) Circle() Circle {
	return Circle{X: e.X, Y: e.Y, R: e.Radius}
}
