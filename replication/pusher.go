package replication

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"

	"artillery/protocol"
	"artillery/store"
)

const (
	shotQueue = 64
	retryWait = 50 * time.Millisecond
)

// Pusher writes the local tank and its shots to the host from its own goroutine so the
// simulation never waits on the network. Player state is latest-wins; shots queue in
// fire order.
type Pusher struct {
	transport Transport
	timeout   time.Duration
	retryWait time.Duration
	player    chan protocol.PlayerRecord
	shots     chan protocol.ProjectileRecord

	// OnAppended is called with the seq the host assigned to each pushed shot.
	OnAppended func(seq uint64)
}

func NewPusher(t Transport, timeout time.Duration) *Pusher {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Pusher{
		transport: t,
		timeout:   timeout,
		retryWait: retryWait,
		player:    make(chan protocol.PlayerRecord, 1),
		shots:     make(chan protocol.ProjectileRecord, shotQueue),
	}
}

// PushPlayer replaces whatever player record is still waiting to be sent.
func (p *Pusher) PushPlayer(rec protocol.PlayerRecord) {
	for {
		select {
		case p.player <- rec:
			return
		default:
		}
		select {
		case <-p.player:
		default:
		}
	}
}

// PushShot queues a shot. It reports false when the queue is full and the shot was
// dropped.
func (p *Pusher) PushShot(rec protocol.ProjectileRecord) bool {
	select {
	case p.shots <- rec:
		return true
	default:
		log.Printf("replication: shot queue full, dropping shot at (%.0f,%.0f)", rec.X, rec.Y)
		return false
	}
}

// Run sends until ctx is done. Shots go before player state when both are waiting. A
// shot the host did not take stays at the head of the queue and is resent, still ahead
// of player state, after retryWait.
func (p *Pusher) Run(ctx context.Context) {
	failing := false
	report := func(err error) {
		if err == nil {
			if failing {
				log.Printf("replication: push recovered")
			}
			failing = false
			return
		}
		if ctx.Err() != nil {
			return
		}
		if !failing {
			log.Printf("replication: push failed: %v", err)
		}
		failing = true
	}

	var pending *protocol.ProjectileRecord
	for {
		if pending == nil {
			select {
			case rec := <-p.shots:
				pending = &rec
			default:
			}
		}
		if pending != nil {
			err := p.sendShot(ctx, *pending)
			if rejected(err) {
				log.Printf("replication: host rejected shot at (%.0f,%.0f): %v", pending.X, pending.Y, err)
				err = nil
			}
			report(err)
			if err == nil {
				pending = nil
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryWait):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case rec := <-p.shots:
			pending = &rec
		case rec := <-p.player:
			cctx, cancel := context.WithTimeout(ctx, p.timeout)
			report(p.transport.UpsertPlayer(cctx, rec))
			cancel()
		}
	}
}

func (p *Pusher) sendShot(ctx context.Context, rec protocol.ProjectileRecord) error {
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	seq, err := p.transport.AppendProjectile(cctx, rec)
	if err != nil {
		return err
	}
	if p.OnAppended != nil {
		p.OnAppended(seq)
	}
	return nil
}

// rejected reports whether the host refused the record itself, so sending it again
// cannot succeed.
func rejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Cause(err) == store.ErrInvalidRecord {
		return true
	}
	var r interface{ Rejected() bool }
	return errors.As(err, &r) && r.Rejected()
}
