package game

// Scene is plain geometry for an external renderer. It shares no memory with State.
type Scene struct {
	Tick   int
	Width  int
	Height int

	Ground      []float64 // surface y per integer x
	Tanks       []TankShape
	Projectiles []Circle
	Explosions  []Circle
	Events      []Event
}

type TankShape struct {
	ID       EntityID
	Name     string
	Friendly bool
	Body     Rect
	Tilt     float64
	Barrel   float64 // degrees, y down
	Reach    float64
	Display  float64 // folded elevation for labels
	Power    float64
	Health   float64
}

func BuildScene(s *State) Scene {
	sc := Scene{
		Tick:        s.Tick,
		Width:       s.Params.Width,
		Height:      s.Params.Height,
		Tanks:       make([]TankShape, 0, len(s.Tanks)),
		Projectiles: make([]Circle, 0, len(s.Projectiles)),
		Explosions:  make([]Circle, 0, len(s.Explosions)),
		Events:      append([]Event(nil), s.Events...),
	}
	if s.Terrain != nil {
		sc.Ground = s.Terrain.Samples()
	}
	for _, t := range s.Tanks {
		if !t.Alive {
			continue
		}
		sc.Tanks = append(sc.Tanks, TankShape{
			ID:       t.ID,
			Name:     t.Name,
			Friendly: t.Friendly,
			Body:     t.Bounds(),
			Tilt:     t.Tilt,
			Barrel:   t.Angle,
			Reach:    s.Params.BarrelReach(),
			Display:  t.DisplayAngle(),
			Power:    t.Power,
			Health:   t.Health,
		})
	}
	for _, p := range s.Projectiles {
		if !p.Removed {
			sc.Projectiles = append(sc.Projectiles, Circle{X: p.X, Y: p.Y, R: p.Radius})
		}
	}
	for _, e := range s.Explosions {
		if !e.Removed {
			sc.Explosions = append(sc.Explosions, e.Circle())
		}
	}
	return sc
}
