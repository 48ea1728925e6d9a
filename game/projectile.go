package game

import "math"

type Projectile struct {
	ID    EntityID
	Owner string

	X, Y   float64
	VX, VY float64

	OriginX, OriginY float64 // spawn point, what peers replay from

	Radius float64
	Angle  float64 // launch angle, degrees
	Power  float64
	Damage float64

	Removed bool
}

// NewProjectile seeds the launch velocity from angle (degrees, y down) and power.
func NewProjectile(x, y, radius, angle, power, damage float64) *Projectile {
	rad := angle * math.Pi / 180
	return &Projectile{
		X:       x,
		Y:       y,
		VX:      math.Cos(rad) * power / ProjectileSpeedDiv,
		VY:      math.Sin(rad) * power / ProjectileSpeedDiv,
		OriginX: x,
		OriginY: y,
		Radius:  radius,
		Angle:   angle,
		Power:   power,
		Damage:  damage,
	}
}

// SplashRadius is the crater radius and the half-extent of the damage box.
func (p *Projectile) SplashRadius() float64 {
	return CraterScale * p.Radius
}

// integrate advances one tick with semi-implicit Euler.
func (p *Projectile) integrate(gravity float64) {
	p.X += p.VX
	p.Y += p.VY
	p.VY += gravity
}
