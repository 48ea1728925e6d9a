package network

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"artillery/protocol"
)

// WSClient talks to a host over one websocket. Calls are serialized; each sends one
// envelope and waits for its answer. A failed call drops the socket and the next call
// dials a fresh one.
type WSClient struct {
	mu      sync.Mutex
	url     string
	conn    *websocket.Conn
	closed  bool
	timeout time.Duration
}

// DialWS connects to the host's /v1/ws endpoint.
func DialWS(ctx context.Context, addr string, timeout time.Duration) (*WSClient, error) {
	u, err := wsURL(addr)
	if err != nil {
		return nil, err
	}
	c := &WSClient{url: u, timeout: timeout}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func wsURL(addr string) (string, error) {
	u := addr
	switch {
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	case !strings.Contains(u, "://"):
		u = "ws://" + u
	}
	parsed, err := url.Parse(strings.TrimRight(u, "/") + "/v1/ws")
	if err != nil {
		return "", errors.Wrapf(err, "dial %s", addr)
	}
	return parsed.String(), nil
}

// dial replaces c.conn. Callers hold c.mu except during construction.
func (c *WSClient) dial(ctx context.Context) error {
	d := websocket.Dialer{HandshakeTimeout: c.timeout}
	conn, _, err := d.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrapf(err, "dial %s", c.url)
	}
	conn.SetReadLimit(readLimit)
	c.conn = conn
	return nil
}

// drop discards a connection that failed mid call. gorilla keeps a read error on the
// conn for good, so it is never read from again.
func (c *WSClient) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *WSClient) Status(ctx context.Context) (protocol.Status, error) {
	env, err := c.roundTrip(ctx, protocol.MsgStatus, protocol.Empty{}, protocol.MsgStatus)
	if err != nil {
		return protocol.Status{}, err
	}
	return protocol.DecodePayload[protocol.Status](env)
}

func (c *WSClient) UpsertPlayer(ctx context.Context, rec protocol.PlayerRecord) error {
	_, err := c.roundTrip(ctx, protocol.MsgUpsertPlayer, protocol.UpsertPlayer{Player: rec}, protocol.MsgAck)
	return err
}

func (c *WSClient) Players(ctx context.Context) (protocol.Players, error) {
	env, err := c.roundTrip(ctx, protocol.MsgReadPlayers, protocol.Empty{}, protocol.MsgPlayers)
	if err != nil {
		return protocol.Players{}, err
	}
	return protocol.DecodePayload[protocol.Players](env)
}

func (c *WSClient) AppendProjectile(ctx context.Context, rec protocol.ProjectileRecord) (uint64, error) {
	env, err := c.roundTrip(ctx, protocol.MsgAddProjectile, protocol.AddProjectile{Projectile: rec}, protocol.MsgAppended)
	if err != nil {
		return 0, err
	}
	a, err := protocol.DecodePayload[protocol.Appended](env)
	return a.Seq, err
}

func (c *WSClient) ProjectilesAfter(ctx context.Context, after uint64) (protocol.Projectiles, error) {
	env, err := c.roundTrip(ctx, protocol.MsgReadProjectiles, protocol.ReadProjectiles{After: after}, protocol.MsgProjectiles)
	if err != nil {
		return protocol.Projectiles{}, err
	}
	return protocol.DecodePayload[protocol.Projectiles](env)
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *WSClient) roundTrip(ctx context.Context, t string, payload any, want string) (protocol.Envelope, error) {
	b, err := protocol.Encode(t, payload)
	if err != nil {
		return protocol.Envelope{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return protocol.Envelope{}, errors.Errorf("%s: client closed", t)
	}
	if c.conn == nil {
		if err := c.dial(ctx); err != nil {
			return protocol.Envelope{}, errors.Wrap(err, t)
		}
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		c.drop()
		return protocol.Envelope{}, errors.Wrap(err, t)
	}
	_ = c.conn.SetReadDeadline(deadline)
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		c.drop()
		return protocol.Envelope{}, errors.Wrap(err, t)
	}
	env, err := protocol.DecodeEnvelope(msg)
	if err != nil {
		return protocol.Envelope{}, err
	}
	if env.T == protocol.MsgError {
		e, _ := protocol.DecodePayload[protocol.Error](env)
		return protocol.Envelope{}, errors.WithStack(&StatusError{Code: 400, Field: e.Field, Msg: e.Message})
	}
	if env.T != want {
		c.drop()
		return protocol.Envelope{}, errors.Errorf("%s: unexpected reply %q", t, env.T)
	}
	return env, nil
}
