package game

import "math"

// Step advances the arena by one tick. elapsedMs is the wall time since the previous
// tick and only drives explosion decay; ballistics assume uniform ticks.
func Step(s *State, inputs map[EntityID]Input, elapsedMs float64) {
	s.Tick++
	s.Fired = s.Fired[:0]
	s.Events = s.Events[:0]

	for _, t := range s.Tanks {
		if !t.Alive || t.Remote {
			continue
		}
		inp, ok := inputs[t.ID]
		if !ok {
			continue
		}
		applyInput(s, t, inp)
	}

	for _, p := range s.Projectiles {
		if p.Removed {
			continue
		}
		stepProjectile(s, p)
	}

	for _, t := range s.Tanks {
		if t.Alive {
			t.Settle(s.Terrain)
		}
	}

	for _, e := range s.Explosions {
		if !e.Removed {
			e.Decay(elapsedMs)
		}
	}

	s.compact()
}

func applyInput(s *State, t *Tank, inp Input) {
	if inp.Left {
		t.Move(-s.Params.MoveSpeed, s.Terrain)
	}
	if inp.Right {
		t.Move(s.Params.MoveSpeed, s.Terrain)
	}
	if inp.RotateCCW {
		t.RotateBarrel(-RotateStepDeg)
	}
	if inp.RotateCW {
		t.RotateBarrel(RotateStepDeg)
	}
	if inp.PowerUp {
		t.ChangePower(PowerStep)
	}
	if inp.PowerDown {
		t.ChangePower(-PowerStep)
	}
	if inp.Fire {
		s.Fire(t.ID)
	}
}

// stepProjectile integrates one projectile and applies at most one removal, checked in
// order: horizontal bounds, ground impact, fell below the screen.
func stepProjectile(s *State, p *Projectile) {
	p.integrate(s.Params.Gravity)

	if p.X < 0 || p.X > float64(s.Terrain.Width()) {
		p.Removed = true
		return
	}

	ix := int(math.Round(p.X))
	if ground, ok := s.Terrain.HeightAt(ix); ok && p.Y >= ground {
		impact(s, p, ix)
		p.Removed = true
		return
	}

	if p.Y > float64(s.Params.Height) {
		p.Removed = true
	}
}

func impact(s *State, p *Projectile, ix int) {
	cx, cy := float64(ix), math.Round(p.Y)
	splash := p.SplashRadius()

	s.Terrain.Deform(cx, cy, splash)
	ey, _ := s.Terrain.HeightAt(ix)
	s.SpawnExplosion(cx, ey, splash)
	s.Events = append(s.Events, Event{Kind: EventImpact, X: cx, Y: ey})

	// Rectangle overlap, not distance: any tank whose box touches the splash box is hit.
	box := RectAround(cx, cy, splash, splash)
	for _, t := range s.Tanks {
		if t.Alive && t.Bounds().Overlaps(box) {
			s.ApplyDamage(t, p.Damage)
		}
	}
}
