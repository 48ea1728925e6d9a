// Package replication keeps a peer's simulation in step with the host's tables. A Poller
// reads the player table and the projectile log on a fixed interval and hands what
// changed to the simulation; a Pusher writes the local tank and its shots back.
package replication

import (
	"context"

	"artillery/protocol"
	"artillery/store"
)

// Transport is the host API as seen by a peer. network.Client and network.WSClient talk
// to a remote host; Local talks to the store of a host running in this process.
type Transport interface {
	Status(ctx context.Context) (protocol.Status, error)
	UpsertPlayer(ctx context.Context, rec protocol.PlayerRecord) error
	Players(ctx context.Context) (protocol.Players, error)
	AppendProjectile(ctx context.Context, rec protocol.ProjectileRecord) (uint64, error)
	ProjectilesAfter(ctx context.Context, after uint64) (protocol.Projectiles, error)
}

// Local serves a host's own simulation straight from its store.
type Local struct {
	Store *store.Store
}

func NewLocal(s *store.Store) *Local {
	return &Local{Store: s}
}

func (l *Local) Status(ctx context.Context) (protocol.Status, error) {
	return l.Store.Status(), ctx.Err()
}

func (l *Local) UpsertPlayer(ctx context.Context, rec protocol.PlayerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.Store.UpsertPlayer(rec)
}

func (l *Local) Players(ctx context.Context) (protocol.Players, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Players{}, err
	}
	return protocol.Players{
		V:       protocol.Version,
		Match:   l.Store.MatchID(),
		Players: l.Store.Players(),
	}, nil
}

func (l *Local) AppendProjectile(ctx context.Context, rec protocol.ProjectileRecord) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.Store.AppendProjectile(rec)
}

func (l *Local) ProjectilesAfter(ctx context.Context, after uint64) (protocol.Projectiles, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Projectiles{}, err
	}
	recs, next := l.Store.ProjectilesAfter(after)
	return protocol.Projectiles{
		V:           protocol.Version,
		Match:       l.Store.MatchID(),
		After:       after,
		Next:        next,
		Projectiles: recs,
	}, nil
}
