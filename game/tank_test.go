package game

import (
	"math"
	"testing"
)

func TestRotateBarrelWraps(t *testing.T) {
	tk := &Tank{Angle: 359}
	tk.RotateBarrel(2)
	if tk.Angle != 1 {
		t.Fatalf("angle = %f, want 1", tk.Angle)
	}
	tk.RotateBarrel(-3)
	if tk.Angle != 358 {
		t.Fatalf("angle = %f, want 358", tk.Angle)
	}
	tk.RotateBarrel(720)
	if tk.Angle != 358 {
		t.Fatalf("angle = %f, want 358 after full turns", tk.Angle)
	}
}

func TestChangePowerClamps(t *testing.T) {
	tk := &Tank{Power: 99}
	tk.ChangePower(5)
	if tk.Power != MaxPower {
		t.Fatalf("power = %f, want %f", tk.Power, MaxPower)
	}
	tk.Power = 1
	tk.ChangePower(-5)
	if tk.Power != 0 {
		t.Fatalf("power = %f, want 0", tk.Power)
	}
}

func TestMoveBlockedBySteepGradient(t *testing.T) {
	ys := make([]float64, 101)
	for i := range ys {
		ys[i] = 300
	}
	ys[51] = 290 // gradient of -10 going right
	tr, err := NewTerrain(100, 400, ys)
	if err != nil {
		t.Fatalf("new terrain: %v", err)
	}
	tk := NewTank("a", 50, 300, DefaultParams())
	if tk.Move(1, tr) {
		t.Fatalf("move succeeded over gradient 10")
	}
	if tk.X != 50 {
		t.Fatalf("x changed to %f on blocked move", tk.X)
	}
	if !tk.Move(-1, tr) {
		t.Fatalf("move left on flat ground refused")
	}
	if tk.X != 49 {
		t.Fatalf("x = %f, want 49", tk.X)
	}
}

func TestMoveClampsToScreen(t *testing.T) {
	tr, err := NewFlatTerrain(200, 400, 300)
	if err != nil {
		t.Fatalf("new terrain: %v", err)
	}
	p := DefaultParams()
	tk := NewTank("a", 200-1, 300, p)
	tk.Move(1, tr)
	if right := tk.Bounds().Right(); right > 200 {
		t.Fatalf("right edge %f past screen width", right)
	}
	tk.X = 1
	tk.Move(-1, tr)
	if tk.Bounds().X < 0 {
		t.Fatalf("left edge %f below zero", tk.Bounds().X)
	}
}

func TestSettleSnapsToSurfaceAndTilts(t *testing.T) {
	ys := make([]float64, 101)
	for i := range ys {
		ys[i] = 300 - float64(i) // rising to the right: y shrinks by 1 per x
	}
	tr, err := NewTerrain(100, 400, ys)
	if err != nil {
		t.Fatalf("new terrain: %v", err)
	}
	tk := NewTank("a", 40, 0, DefaultParams())
	tk.Settle(tr)
	if got := tk.Bounds().Bottom(); math.Abs(got-260) > 1e-9 {
		t.Fatalf("bottom = %f, want 260", got)
	}
	if math.Abs(tk.Tilt-(-45)) > 1e-9 {
		t.Fatalf("tilt = %f, want -45", tk.Tilt)
	}
}

func TestApplyDamageKillsOnce(t *testing.T) {
	tk := &Tank{Health: 40, Alive: true}
	if tk.ApplyDamage(30) {
		t.Fatalf("tank died at 10 health")
	}
	if !tk.ApplyDamage(10) {
		t.Fatalf("tank survived at 0 health")
	}
	if tk.ApplyDamage(10) {
		t.Fatalf("dead tank reported a second death")
	}
	if tk.Health != 0 {
		t.Fatalf("dead tank took damage: health=%f", tk.Health)
	}
}

func TestTankDeathSpawnsExplosionAndLeavesArena(t *testing.T) {
	p := DefaultParams()
	tr, err := NewFlatTerrain(p.Width, p.Height, 700)
	if err != nil {
		t.Fatalf("new terrain: %v", err)
	}
	s := NewState(p, tr)
	tk := NewTank("a", 300, 700, p)
	id := s.AddTank(tk)

	s.ApplyDamage(tk, p.BaseHealth)
	if len(s.Explosions) != 1 || s.Explosions[0].MaxRadius != TankDeathRadius {
		t.Fatalf("expected one death explosion of radius %f, got %+v", TankDeathRadius, s.Explosions)
	}
	Step(s, nil, 16)
	if _, ok := s.Tank(id); ok {
		t.Fatalf("dead tank still in arena")
	}
	if len(s.Tanks) != 0 {
		t.Fatalf("tanks not compacted: %d", len(s.Tanks))
	}
}

func TestDisplayAngle(t *testing.T) {
	cases := map[float64]float64{0: 0, 45: -45, 90: -90, 135: -45, 270: 90, 300: 60}
	for in, want := range cases {
		tk := &Tank{Angle: in}
		if got := tk.DisplayAngle(); got != want {
			t.Fatalf("DisplayAngle(%f) = %f, want %f", in, got, want)
		}
	}
}
