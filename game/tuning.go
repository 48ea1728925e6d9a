package game

import "math"

const (
	TerrainMargin        = 64.0 // lowest terrain y is screenHeight - TerrainMargin
	SmoothPasses         = 3
	ProjectileSpeedDiv   = 4.0 // launch power -> px per tick
	CraterScale          = 3.0 // crater and splash radius = CraterScale * projectile radius
	MaxClimbGradient     = 4.0
	MaxPower             = 100.0
	RotateStepDeg        = 1.0
	PowerStep            = 1.0
	TankDeathRadius      = 50.0
	ExplosionStartRadius = 1.0
	ExplosionRatePerMs   = 0.1 // radius change per elapsed millisecond
	TankBodyRatio        = 70.0 // body height = screenHeight / TankBodyRatio
	TankAspect           = 2.2
	BarrelRatio          = 26.0 // barrel length = screenHeight / BarrelRatio
)

// Params are the simulation constants read from configuration.
type Params struct {
	Width            int
	Height           int
	Gravity          float64 // added to vertical velocity every tick
	MoveSpeed        float64 // px per tick
	BaseHealth       float64
	ProjectileDamage float64
	ProjectileRadius float64
}

func DefaultParams() Params {
	return Params{
		Width:            1536,
		Height:           864,
		Gravity:          0.4,
		MoveSpeed:        1,
		BaseHealth:       200,
		ProjectileDamage: 30,
		ProjectileRadius: 5,
	}
}

// TankSize returns the body width and height derived from the screen height.
func (p Params) TankSize() (w, h float64) {
	h = math.Round(float64(p.Height) / TankBodyRatio)
	w = math.Round(float64(p.Height) / TankBodyRatio * TankAspect)
	return w, h
}

// BarrelReach is the distance from the tank centre to the turret tip.
func (p Params) BarrelReach() float64 {
	return float64(p.Height) / BarrelRatio / 2
}

// GroundHeight is the default target ground height used by terrain presets.
func (p Params) GroundHeight() float64 {
	return float64(p.Height / 6)
}
