package room

import (
	"context"
	"io"
	"log"
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"

	"artillery/config"
	"artillery/game"
	"artillery/network"
	"artillery/replication"
	"artillery/store"
)

type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseHosting
	PhaseJoining
	PhaseActive
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseHosting:
		return "hosting"
	case PhaseJoining:
		return "joining"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	}
	return "unknown"
}

var ErrInvalidTransition = errors.New("invalid session transition")

// Hosting and Joining fall back to Idle when the host cannot be reached or bound.
var transitions = map[Phase][]Phase{
	PhaseIdle:    {PhaseHosting, PhaseJoining, PhaseActive, PhaseTerminated},
	PhaseHosting: {PhaseActive, PhaseIdle},
	PhaseJoining: {PhaseActive, PhaseIdle},
	PhaseActive:  {PhaseTerminated},
}

// spawnMargin keeps spawned tanks away from the screen edges.
const spawnMargin = 50

// Session drives one match from setup to teardown.
type Session struct {
	mu    sync.Mutex
	phase Phase
	cfg   config.Config

	room   *Room
	tanks  []game.EntityID
	server *network.Server
	conn   io.Closer
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// OnFrame is handed to the room; set before starting.
	OnFrame func(game.Scene)
	// Spawn picks a tank's x; nil picks uniformly inside the margins.
	Spawn func(width int) float64
}

func NewSession(cfg config.Config) *Session {
	return &Session{cfg: cfg}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) transition(to Phase) error {
	for _, p := range transitions[s.phase] {
		if p == to {
			log.Printf("session: %s -> %s", s.phase, to)
			s.phase = to
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidTransition, "%s -> %s", s.phase, to)
}

// Local starts an offline match with one locally controlled tank per name. The first
// tank is friendly, the rest are enemies.
func (s *Session) Local(names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseIdle {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", s.phase, PhaseActive)
	}
	if len(names) == 0 {
		return errors.New("local match needs at least one player")
	}
	r, err := s.newRoom()
	if err != nil {
		return err
	}
	for i, name := range names {
		s.tanks = append(s.tanks, r.spawnLocal(name, s.spawnX(), i == 0))
	}
	s.start(r, "", nil, nil)
	return s.transition(PhaseActive)
}

// Host binds the replication store on the configured address and joins it as name.
func (s *Session) Host(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(PhaseHosting); err != nil {
		return err
	}

	st := store.New(s.cfg.LogRetention)
	var accessLog io.Writer
	if s.cfg.AccessLog {
		accessLog = log.Writer()
	}
	srv := network.NewServer(s.cfg.Addr, st, accessLog)
	if err := srv.Start(); err != nil {
		_ = s.transition(PhaseIdle)
		return err
	}

	r, err := s.newRoom()
	if err != nil {
		_ = srv.Close()
		_ = s.transition(PhaseIdle)
		return err
	}
	s.server = srv
	s.tanks = append(s.tanks, r.spawnLocal(name, s.spawnX(), true))
	s.start(r, name, replication.NewLocal(st), nil)
	return s.transition(PhaseActive)
}

// Join connects to a host at addr as name.
func (s *Session) Join(ctx context.Context, name, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(PhaseJoining); err != nil {
		return err
	}

	conn, err := network.Dial(ctx, s.cfg.Transport, addr, s.cfg.Codec, s.cfg.ConnectTimeout)
	if err != nil {
		_ = s.transition(PhaseIdle)
		return err
	}
	r, err := s.newRoom()
	if err != nil {
		_ = conn.Close()
		_ = s.transition(PhaseIdle)
		return err
	}
	s.tanks = append(s.tanks, r.spawnLocal(name, s.spawnX(), true))
	s.start(r, name, conn, conn)
	return s.transition(PhaseActive)
}

func (s *Session) newRoom() (*Room, error) {
	p := s.cfg.Params()
	ground, err := game.GenerateTerrain(p.Width, p.Height, s.cfg.Terrain, p.GroundHeight())
	if err != nil {
		return nil, errors.Wrap(err, "terrain")
	}
	r := New(game.NewState(p, ground), s.cfg.TickHz)
	r.OnFrame = s.OnFrame
	return r, nil
}

func (s *Session) spawnX() float64 {
	w := s.cfg.ScreenWidth
	if s.Spawn != nil {
		return s.Spawn(w)
	}
	if w <= 2*spawnMargin {
		return float64(w) / 2
	}
	return float64(spawnMargin + rand.IntN(w-2*spawnMargin))
}

// start runs the room and, when t is set, the poller and pusher that replicate self.
func (s *Session) start(r *Room, self string, t replication.Transport, conn io.Closer) {
	ctx, cancel := context.WithCancel(context.Background())
	s.room = r
	s.conn = conn
	s.cancel = cancel

	if t != nil {
		poller := replication.NewPoller(t, self, s.cfg.PollInterval, s.cfg.ConnectTimeout)
		pusher := replication.NewPusher(t, s.cfg.ConnectTimeout)
		pusher.OnAppended = poller.MarkOwn
		r.Replicate(self, poller.Updates(), pusher)

		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			poller.Run(ctx)
		}()
		go func() {
			defer s.wg.Done()
			pusher.Run(ctx)
		}()
	}
	go r.Run()
}

// Room is the running arena, nil before the session is active.
func (s *Session) Room() *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Tanks lists the locally controlled tanks in spawn order.
func (s *Session) Tanks() []game.EntityID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]game.EntityID(nil), s.tanks...)
}

// Addr is the bound host address, empty unless hosting.
func (s *Session) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return ""
	}
	return s.server.Addr()
}

// Terminate stops the match and releases everything it holds.
func (s *Session) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(PhaseTerminated); err != nil {
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.room != nil {
		s.room.Stop()
	}
	s.wg.Wait()

	var first error
	if s.server != nil {
		first = s.server.Close()
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	if s.room != nil {
		s.room.state.Clear()
	}
	return first
}
