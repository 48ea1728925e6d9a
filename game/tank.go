package game

import "math"

type Tank struct {
	ID       EntityID
	Name     string
	Friendly bool
	Remote   bool // driven by replicated state rather than local input

	X, Y float64 // body centre
	W, H float64

	Angle  float64 // barrel, degrees in [0,360)
	Power  float64 // [0,MaxPower]
	Health float64
	Alive  bool
	Tilt   float64 // visual body tilt from the local slope, degrees
}

// NewTank places a tank with its centre at x and its bottom edge on groundY.
func NewTank(name string, x, groundY float64, p Params) *Tank {
	w, h := p.TankSize()
	return &Tank{
		Name:     name,
		Friendly: true,
		X:        x,
		Y:        groundY - h/2,
		W:        w,
		H:        h,
		Power:    MaxPower / 2,
		Health:   p.BaseHealth,
		Alive:    true,
	}
}

func (t *Tank) Bounds() Rect {
	return RectAround(t.X, t.Y, t.W/2, t.H/2)
}

// RotateBarrel adds delta degrees, wrapping into [0,360).
func (t *Tank) RotateBarrel(delta float64) {
	a := math.Mod(t.Angle+delta, 360)
	if a < 0 {
		a += 360
	}
	t.Angle = a
}

// ChangePower adds delta, clamping into [0,MaxPower].
func (t *Tank) ChangePower(delta float64) {
	t.Power = math.Max(0, math.Min(MaxPower, t.Power+delta))
}

// Move shifts the tank horizontally by dx when the ground gradient over the step is
// within MaxClimbGradient. The body is kept inside [0, terrain width].
func (t *Tank) Move(dx float64, ground *Terrain) bool {
	step := int(math.Round(dx))
	if step == 0 {
		return false
	}
	x := int(math.Round(t.X))
	from, ok := ground.HeightAt(x)
	if !ok {
		return false
	}
	to, ok := ground.HeightAt(x + step)
	if !ok {
		return false
	}
	gradient := (to - from) / float64(step)
	if math.Abs(gradient) > MaxClimbGradient {
		return false
	}

	t.X += float64(step)
	half := t.W / 2
	if t.X-half < 0 {
		t.X = half
	} else if t.X+half > float64(ground.Width()) {
		t.X = float64(ground.Width()) - half
	}
	return true
}

// Settle recomputes the tilt from the slope one sample back and snaps the body onto
// the surface under its centre.
func (t *Tank) Settle(ground *Terrain) {
	x := int(math.Round(t.X))
	here, ok := ground.HeightAt(x)
	if !ok {
		return
	}
	if back, ok := ground.HeightAt(x - 1); ok {
		t.Tilt = math.Atan(here-back) * 180 / math.Pi
	} else {
		t.Tilt = 0
	}
	t.Y = here - t.H/2
}

// ApplyDamage subtracts amount and reports whether this call killed the tank.
// A dead tank takes no further damage.
func (t *Tank) ApplyDamage(amount float64) bool {
	if !t.Alive {
		return false
	}
	t.Health -= amount
	if t.Health <= 0 {
		t.Alive = false
		return true
	}
	return false
}

// TurretTip is where fired projectiles spawn.
func (t *Tank) TurretTip(p Params) (float64, float64) {
	rad := t.Angle * math.Pi / 180
	reach := p.BarrelReach()
	return t.X + math.Cos(rad)*reach, t.Y + math.Sin(rad)*reach
}

// Fire builds a projectile at the turret tip using the current angle and power.
func (t *Tank) Fire(p Params) *Projectile {
	x, y := t.TurretTip(p)
	pr := NewProjectile(x, y, p.ProjectileRadius, t.Angle, t.Power, p.ProjectileDamage)
	pr.Owner = t.Name
	return pr
}

// DisplayAngle folds the barrel angle into the elevation shown next to the tank.
func (t *Tank) DisplayAngle() float64 {
	switch {
	case t.Angle <= 90:
		return -t.Angle
	case t.Angle <= 270:
		return t.Angle - 180
	default:
		return 360 - t.Angle
	}
}
