package network

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"artillery/protocol"
)

// Conn is a host connection of either transport.
type Conn interface {
	Status(ctx context.Context) (protocol.Status, error)
	UpsertPlayer(ctx context.Context, rec protocol.PlayerRecord) error
	Players(ctx context.Context) (protocol.Players, error)
	AppendProjectile(ctx context.Context, rec protocol.ProjectileRecord) (uint64, error)
	ProjectilesAfter(ctx context.Context, after uint64) (protocol.Projectiles, error)
	Close() error
}

// Dial connects with the named transport ("http" or "ws") and checks that the host
// answers with a compatible status before returning.
func Dial(ctx context.Context, transport, addr, codec string, timeout time.Duration) (Conn, error) {
	var c Conn
	switch transport {
	case "", "http":
		cd, err := protocol.CodecByName(codec)
		if err != nil {
			return nil, err
		}
		c = NewClient(addr, timeout, cd)
	case "ws":
		ws, err := DialWS(ctx, addr, timeout)
		if err != nil {
			return nil, err
		}
		c = ws
	default:
		return nil, errors.Errorf("unknown transport %q", transport)
	}

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	st, err := c.Status(sctx)
	if err != nil {
		_ = c.Close()
		return nil, errors.Wrapf(err, "connect %s", addr)
	}
	if st.V != protocol.Version {
		_ = c.Close()
		return nil, errors.Errorf("connect %s: host speaks v%d, want v%d", addr, st.V, protocol.Version)
	}
	return c, nil
}
