package replication

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"artillery/protocol"
)

// ErrVersion is returned when the host answers with another schema version.
var ErrVersion = errors.New("protocol version mismatch")

// Update is what one successful poll learned. The simulation applies it on its own
// goroutine.
type Update struct {
	Match string
	// Reset is set when the host's match id changed; remote tanks from the
	// previous match are stale.
	Reset bool
	// Joined lists players seen for the first time, in host join order.
	Joined []protocol.PlayerRecord
	// Players is the latest record of every player except self.
	Players []protocol.PlayerRecord
	// Projectiles are log entries fired by other peers since the last poll.
	Projectiles []protocol.ProjectileRecord
}

type Poller struct {
	transport Transport
	self      string
	interval  time.Duration
	timeout   time.Duration
	updates   chan Update

	mu  sync.Mutex
	own map[uint64]struct{} // seqs appended by this peer

	// owned by the polling goroutine
	match   string
	known   map[string]struct{}
	cursor  uint64
	failing bool
}

// NewPoller polls t every interval on behalf of the player named self. timeout bounds
// each round trip.
func NewPoller(t Transport, self string, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Second / protocol.PollHz
	}
	if timeout <= 0 || timeout > interval*10 {
		timeout = interval * 10
	}
	return &Poller{
		transport: t,
		self:      self,
		interval:  interval,
		timeout:   timeout,
		updates:   make(chan Update, 4),
		own:       make(map[uint64]struct{}),
		known:     map[string]struct{}{self: {}},
	}
}

// Updates is read by the simulation. It is closed when Run returns.
func (p *Poller) Updates() <-chan Update {
	return p.updates
}

// MarkOwn records a seq this peer appended so the poll that reads it back skips it.
func (p *Poller) MarkOwn(seq uint64) {
	p.mu.Lock()
	p.own[seq] = struct{}{}
	p.mu.Unlock()
}

// Run polls until ctx is done. A failed poll is logged once per streak and skipped.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.updates)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, p.timeout)
			u, err := p.Poll(pctx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !p.failing {
					log.Printf("replication: poll failed: %v", err)
				}
				p.failing = true
				continue
			}
			if p.failing {
				log.Printf("replication: poll recovered")
				p.failing = false
			}
			select {
			case p.updates <- u:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Poll runs one round: the player table, then the log from the cursor. Nothing is
// committed unless both reads succeed.
func (p *Poller) Poll(ctx context.Context) (Update, error) {
	players, err := p.transport.Players(ctx)
	if err != nil {
		return Update{}, errors.Wrap(err, "read players")
	}
	if players.V != protocol.Version {
		return Update{}, errors.Wrapf(ErrVersion, "host speaks v%d", players.V)
	}

	u := Update{Match: players.Match}
	known := p.known
	cursor := p.cursor
	if players.Match != p.match {
		u.Reset = p.match != ""
		known = map[string]struct{}{p.self: {}}
		cursor = 0
	}

	page, err := p.transport.ProjectilesAfter(ctx, cursor)
	if err != nil {
		return Update{}, errors.Wrap(err, "read projectiles")
	}
	if page.V != protocol.Version {
		return Update{}, errors.Wrapf(ErrVersion, "host speaks v%d", page.V)
	}
	if page.Match != players.Match {
		return Update{}, errors.Errorf("match changed between reads: %s -> %s", players.Match, page.Match)
	}

	var joined []string
	for _, rec := range players.Players {
		if rec.Name == p.self {
			continue
		}
		u.Players = append(u.Players, rec)
		if _, ok := known[rec.Name]; !ok {
			u.Joined = append(u.Joined, rec)
			joined = append(joined, rec.Name)
		}
	}

	p.mu.Lock()
	if u.Reset {
		p.own = make(map[uint64]struct{})
	}
	for _, rec := range page.Projectiles {
		if rec.Seq <= cursor {
			continue
		}
		if _, mine := p.own[rec.Seq]; mine {
			delete(p.own, rec.Seq)
			continue
		}
		if rec.Owner == p.self {
			continue
		}
		u.Projectiles = append(u.Projectiles, rec)
	}
	p.mu.Unlock()

	if players.Match != p.match {
		p.known = known
		p.match = players.Match
	}
	for _, name := range joined {
		p.known[name] = struct{}{}
	}
	if page.Next > cursor {
		p.cursor = page.Next
	} else {
		p.cursor = cursor
	}
	return u, nil
}
