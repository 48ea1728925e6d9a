package room

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artillery/config"
	"artillery/game"
)

func testConfig() config.Config {
	c := config.Default()
	c.Addr = "127.0.0.1:0"
	c.PollInterval = 10 * time.Millisecond
	c.ConnectTimeout = time.Second
	c.Terrain = game.ProfileFlat
	return c
}

func snapshot(t *testing.T, r *Room) game.Scene {
	t.Helper()
	reply := make(chan game.Scene, 1)
	r.Inbox <- Snapshot{Reply: reply}
	select {
	case sc := <-reply:
		return sc
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return game.Scene{}
}

func tankNames(sc game.Scene) []string {
	var out []string
	for _, tk := range sc.Tanks {
		out = append(out, tk.Name)
	}
	return out
}

func TestLocalSessionLifecycle(t *testing.T) {
	s := NewSession(testConfig())
	assert.Equal(t, PhaseIdle, s.Phase())

	require.NoError(t, s.Local("p1", "p2"))
	assert.Equal(t, PhaseActive, s.Phase())
	assert.Len(t, s.Tanks(), 2)

	sc := snapshot(t, s.Room())
	require.Len(t, sc.Tanks, 2)
	assert.True(t, sc.Tanks[0].Friendly)
	assert.False(t, sc.Tanks[1].Friendly)

	err := s.Local("again")
	assert.Equal(t, ErrInvalidTransition, errors.Cause(err))

	require.NoError(t, s.Terminate())
	assert.Equal(t, PhaseTerminated, s.Phase())
	assert.Equal(t, ErrInvalidTransition, errors.Cause(s.Terminate()))
}

func TestLocalSessionNeedsPlayers(t *testing.T) {
	s := NewSession(testConfig())
	assert.Error(t, s.Local())
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestHostFailsBackToIdle(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Addr = ln.Addr().String()
	s := NewSession(cfg)
	assert.Error(t, s.Host("alice"))
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestJoinFailsBackToIdle(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	cfg := testConfig()
	cfg.ConnectTimeout = 200 * time.Millisecond
	s := NewSession(cfg)
	assert.Error(t, s.Join(context.Background(), "bob", addr))
	assert.Equal(t, PhaseIdle, s.Phase())

	// Idle again, so a retry is a legal transition
	err = s.Join(context.Background(), "bob", addr)
	assert.NotEqual(t, ErrInvalidTransition, errors.Cause(err))
}

func testHostAndJoin(t *testing.T, transport string) {
	host := NewSession(testConfig())
	host.Spawn = func(int) float64 { return 300 }
	require.NoError(t, host.Host("alice"))
	defer host.Terminate()

	var sawShot atomic.Bool
	cfg := testConfig()
	cfg.Transport = transport
	peer := NewSession(cfg)
	peer.Spawn = func(int) float64 { return 1200 }
	peer.OnFrame = func(sc game.Scene) {
		if len(sc.Projectiles) > 0 {
			sawShot.Store(true)
		}
	}
	require.NoError(t, peer.Join(context.Background(), "bob", host.Addr()))
	defer peer.Terminate()
	assert.Equal(t, PhaseActive, peer.Phase())

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"alice", "bob"}, tankNames(snapshot(t, host.Room())))
	}, 2*time.Second, 20*time.Millisecond, "host never saw bob")
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"bob", "alice"}, tankNames(snapshot(t, peer.Room())))
	}, 2*time.Second, 20*time.Millisecond, "peer never saw alice")

	host.Room().Inbox <- Intent{Tank: host.Tanks()[0], Input: game.Input{Fire: true}}
	assert.Eventually(t, sawShot.Load, 2*time.Second, 10*time.Millisecond, "shot never replicated")
}

func TestHostAndJoinOverHTTP(t *testing.T) {
	testHostAndJoin(t, "http")
}

func TestHostAndJoinOverWebsocket(t *testing.T) {
	testHostAndJoin(t, "ws")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "hosting", PhaseHosting.String())
	assert.Equal(t, "terminated", PhaseTerminated.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
