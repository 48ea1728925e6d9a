package game

// Internal truth: the arena of one match.

// EntityID is stable for the lifetime of an entity within one State.
type EntityID uint32

type EventKind uint8

const (
	EventFire EventKind = iota + 1
	EventImpact
	EventTankDestroyed
)

// Event is something a renderer or sound layer may want to react to.
type Event struct {
	Kind EventKind
	X, Y float64
	Tank EntityID
}

type State struct {
	Tick    int
	Params  Params
	Terrain *Terrain

	Tanks       []*Tank
	Projectiles []*Projectile
	Explosions  []*Explosion

	// Filled during Step, reset at the start of the next one.
	Fired  []*Projectile
	Events []Event

	nextID EntityID
}

func NewState(p Params, ground *Terrain) *State {
	return &State{
		Params:  p,
		Terrain: ground,
		nextID:  1,
	}
}

func (s *State) allocID() EntityID {
	if s.nextID == 0 {
		s.nextID = 1
	}
	id := s.nextID
	s.nextID++
	return id
}

// AddTank registers a tank in the arena and settles it on the terrain.
func (s *State) AddTank(t *Tank) EntityID {
	t.ID = s.allocID()
	if s.Terrain != nil {
		t.Settle(s.Terrain)
	}
	s.Tanks = append(s.Tanks, t)
	return t.ID
}

// Tank returns a live tank by id.
func (s *State) Tank(id EntityID) (*Tank, bool) {
	for _, t := range s.Tanks {
		if t.ID == id && t.Alive {
			return t, true
		}
	}
	return nil, false
}

func (s *State) TankByName(name string) (*Tank, bool) {
	for _, t := range s.Tanks {
		if t.Name == name && t.Alive {
			return t, true
		}
	}
	return nil, false
}

func (s *State) SpawnProjectile(p *Projectile) EntityID {
	p.ID = s.allocID()
	s.Projectiles = append(s.Projectiles, p)
	return p.ID
}

func (s *State) SpawnExplosion(x, y, maxRadius float64) *Explosion {
	e := NewExplosion(x, y, maxRadius)
	e.ID = s.allocID()
	s.Explosions = append(s.Explosions, e)
	return e
}

// Fire spawns a projectile from a live tank and records it in Fired.
func (s *State) Fire(id EntityID) (*Projectile, bool) {
	t, ok := s.Tank(id)
	if !ok {
		return nil, false
	}
	p := t.Fire(s.Params)
	s.SpawnProjectile(p)
	s.Fired = append(s.Fired, p)
	s.Events = append(s.Events, Event{Kind: EventFire, X: p.X, Y: p.Y, Tank: id})
	return p, true
}

// ApplyDamage damages a tank; on death it explodes and leaves the arena at the end of
// the tick.
func (s *State) ApplyDamage(t *Tank, amount float64) {
	if !t.ApplyDamage(amount) {
		return
	}
	s.SpawnExplosion(t.X, t.Y, TankDeathRadius)
	s.Events = append(s.Events, Event{Kind: EventTankDestroyed, X: t.X, Y: t.Y, Tank: t.ID})
}

// Clear empties every registry at match end.
func (s *State) Clear() {
	s.Tanks = nil
	s.Projectiles = nil
	s.Explosions = nil
	s.Fired = nil
	s.Events = nil
}

// compact drops entities marked for removal, preserving order.
func (s *State) compact() {
	tanks := s.Tanks[:0]
	for _, t := range s.Tanks {
		if t.Alive {
			tanks = append(tanks, t)
		}
	}
	clearTail(s.Tanks, len(tanks))
	s.Tanks = tanks

	projectiles := s.Projectiles[:0]
	for _, p := range s.Projectiles {
		if !p.Removed {
			projectiles = append(projectiles, p)
		}
	}
	clearTail(s.Projectiles, len(projectiles))
	s.Projectiles = projectiles

	explosions := s.Explosions[:0]
	for _, e := range s.Explosions {
		if !e.Removed {
			explosions = append(explosions, e)
		}
	}
	clearTail(s.Explosions, len(explosions))
	s.Explosions = explosions
}

func clearTail[T any](s []*T, from int) {
	for i := from; i < len(s); i++ {
		s[i] = nil
	}
}
