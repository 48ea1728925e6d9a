package room

import (
	"log"
	"sync"
	"time"

	"artillery/game"
	"artillery/protocol"
	"artillery/replication"
)

// Publisher receives what this peer tells the host: its tank every tick and every shot
// it fires. replication.Pusher implements it.
type Publisher interface {
	PushPlayer(rec protocol.PlayerRecord)
	PushShot(rec protocol.ProjectileRecord) bool
}

// Room owns one arena and advances it on a fixed tick. Everything that touches the
// arena runs on the Run goroutine; other goroutines talk to it through Inbox.
type Room struct {
	Inbox        chan any
	tickHz       int
	state        *game.State
	latestInputs map[game.EntityID]game.Input

	self      string // name of the tank pushed to the host, empty offline
	lastSelf  protocol.PlayerRecord
	haveSelf  bool
	updates   <-chan replication.Update
	publisher Publisher
	remote    map[string]game.EntityID
	remoteRec map[string]protocol.PlayerRecord

	last     time.Time
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	OnFrame func(game.Scene) // called on the Run goroutine after every tick
}

func New(state *game.State, tickHz int) *Room {
	if tickHz <= 0 {
		tickHz = protocol.SimTickHz
	}
	return &Room{
		Inbox:        make(chan any, 256),
		tickHz:       tickHz,
		state:        state,
		latestInputs: make(map[game.EntityID]game.Input),
		remote:       make(map[string]game.EntityID),
		remoteRec:    make(map[string]protocol.PlayerRecord),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Replicate links the room to a match. self names the tank whose state is published;
// updates come from a replication.Poller. Call before Run.
func (r *Room) Replicate(self string, updates <-chan replication.Update, pub Publisher) {
	r.self = self
	r.updates = updates
	r.publisher = pub
}

// Stop ends Run and waits for it to return. Safe to call more than once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
	<-r.done
}

func (r *Room) Run() {
	defer close(r.done)
	ticker := time.NewTicker(time.Second / time.Duration(r.tickHz))
	defer ticker.Stop()
	r.last = time.Now()

	for {
		select {
		case <-r.quit:
			return
		case cmd := <-r.Inbox:
			r.handleCommand(cmd)
		case now := <-ticker.C:
			r.tick(now)
		}
	}
}

func (r *Room) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case Intent:
		if _, ok := r.state.Tank(c.Tank); !ok {
			return
		}
		// a fire press survives until a tick consumes it
		if r.latestInputs[c.Tank].Fire {
			c.Input.Fire = true
		}
		r.latestInputs[c.Tank] = c.Input
	case AddTank:
		id := r.spawnLocal(c.Name, c.X, c.Friendly)
		if c.Reply != nil {
			c.Reply <- AddTankResult{Tank: id}
		}
	case Snapshot:
		c.Reply <- game.BuildScene(r.state)
	default:
		log.Printf("room: unknown command %T", cmd)
	}
}

func (r *Room) spawnLocal(name string, x float64, friendly bool) game.EntityID {
	t := game.NewTank(name, x, r.state.Terrain.Floor(), r.state.Params)
	t.Friendly = friendly
	id := r.state.AddTank(t)
	r.latestInputs[id] = game.Input{}
	return id
}

func (r *Room) tick(now time.Time) {
	elapsed := float64(now.Sub(r.last)) / float64(time.Millisecond)
	r.last = now
	r.advance(elapsed)
}

// advance runs one tick: fold in replicated shots and joins, step, overwrite remote
// tanks, publish. Remote overwrites come after Step so their death events reach the frame.
func (r *Room) advance(elapsedMs float64) {
	r.drainUpdates()

	game.Step(r.state, r.latestInputs, elapsedMs)
	r.applyRemote()
	for id, in := range r.latestInputs {
		if _, ok := r.state.Tank(id); !ok {
			delete(r.latestInputs, id)
			continue
		}
		in.Fire = false
		r.latestInputs[id] = in
	}

	r.publish()
	if r.OnFrame != nil {
		r.OnFrame(game.BuildScene(r.state))
	}
}

func (r *Room) drainUpdates() {
	for {
		select {
		case u, ok := <-r.updates:
			if !ok {
				r.updates = nil
				return
			}
			r.applyUpdate(u)
		default:
			return
		}
	}
}

func (r *Room) applyUpdate(u replication.Update) {
	if u.Reset {
		for name, id := range r.remote {
			if t, ok := r.state.Tank(id); ok {
				t.Alive = false
			}
			delete(r.remote, name)
		}
		clear(r.remoteRec)
	}
	for _, rec := range u.Joined {
		if _, ok := r.remote[rec.Name]; ok {
			continue
		}
		t := game.NewTank(rec.Name, rec.X, r.state.Terrain.Floor(), r.state.Params)
		t.Friendly = false
		t.Remote = true
		r.remote[rec.Name] = r.state.AddTank(t)
		log.Printf("room: %s joined", rec.Name)
	}
	for _, rec := range u.Players {
		r.remoteRec[rec.Name] = rec
	}
	for _, rec := range u.Projectiles {
		p := game.NewProjectile(rec.X, rec.Y, rec.Radius, rec.Angle, rec.Power, rec.Damage)
		p.Owner = rec.Owner
		r.state.SpawnProjectile(p)
	}
}

// applyRemote overwrites every remote tank from its latest record.
func (r *Room) applyRemote() {
	for name, id := range r.remote {
		rec, ok := r.remoteRec[name]
		if !ok {
			continue
		}
		t, ok := r.state.Tank(id)
		if !ok {
			continue
		}
		t.X, t.Y = rec.X, rec.Y
		t.Angle = rec.Angle
		t.Power = rec.Power
		if rec.Health == nil {
			continue
		}
		if *rec.Health <= 0 {
			r.state.ApplyDamage(t, t.Health)
		} else {
			t.Health = *rec.Health
		}
	}
}

func (r *Room) publish() {
	if r.publisher == nil {
		return
	}
	for _, p := range r.state.Fired {
		if p.Owner != r.self {
			continue
		}
		r.publisher.PushShot(protocol.ProjectileRecord{
			Owner:  p.Owner,
			X:      p.OriginX,
			Y:      p.OriginY,
			Radius: p.Radius,
			Angle:  p.Angle,
			Power:  p.Power,
			Damage: p.Damage,
		})
	}

	if t, ok := r.state.TankByName(r.self); ok && !t.Remote {
		h := t.Health
		r.lastSelf = protocol.PlayerRecord{Name: t.Name, X: t.X, Y: t.Y, Angle: t.Angle, Power: t.Power, Health: &h}
		r.haveSelf = true
	} else if r.haveSelf && (r.lastSelf.Health == nil || *r.lastSelf.Health > 0) {
		dead := 0.0
		r.lastSelf.Health = &dead
	}
	if r.haveSelf {
		r.publisher.PushPlayer(r.lastSelf)
	}
}
