package game

// Rect is an axis-aligned box with its origin at the top-left corner (y grows downward).
type Rect struct {
	X, Y, W, H float64
}

func RectAround(cx, cy, halfW, halfH float64) Rect {
	return Rect{X: cx - halfW, Y: cy - halfH, W: 2 * halfW, H: 2 * halfH}
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Overlaps reports whether the boxes intersect; touching edges count.
func (r Rect) Overlaps(o Rect) bool {
	return r.X <= o.Right() && o.X <= r.Right() &&
		r.Y <= o.Bottom() && o.Y <= r.Bottom()
}

type Circle struct {
	X, Y, R float64
}
