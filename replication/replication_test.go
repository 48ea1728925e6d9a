package replication

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artillery/protocol"
	"artillery/store"
)

func shot(owner string, x float64) protocol.ProjectileRecord {
	return protocol.ProjectileRecord{Owner: owner, X: x, Y: 100, Radius: 5, Angle: 45, Power: 50, Damage: 30}
}

func TestPollReportsNewPlayersOnce(t *testing.T) {
	st := store.New(0)
	p := NewPoller(NewLocal(st), "me", time.Millisecond, time.Second)
	ctx := context.Background()

	require.NoError(t, st.UpsertPlayer(protocol.PlayerRecord{Name: "me", X: 1}))
	require.NoError(t, st.UpsertPlayer(protocol.PlayerRecord{Name: "bob", X: 2}))

	u, err := p.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, u.Reset)
	require.Len(t, u.Joined, 1)
	assert.Equal(t, "bob", u.Joined[0].Name)
	require.Len(t, u.Players, 1)

	require.NoError(t, st.UpsertPlayer(protocol.PlayerRecord{Name: "bob", X: 7}))
	u, err = p.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, u.Joined)
	require.Len(t, u.Players, 1)
	assert.Equal(t, 7.0, u.Players[0].X)
}

func TestPollSkipsOwnShotsAndAdvancesCursor(t *testing.T) {
	st := store.New(0)
	p := NewPoller(NewLocal(st), "me", time.Millisecond, time.Second)
	ctx := context.Background()

	_, _ = st.AppendProjectile(shot("me", 1))
	_, _ = st.AppendProjectile(shot("bob", 2))
	seq, _ := st.AppendProjectile(protocol.ProjectileRecord{X: 3, Y: 1, Radius: 5, Power: 10})
	p.MarkOwn(seq)

	u, err := p.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, u.Projectiles, 1)
	assert.Equal(t, "bob", u.Projectiles[0].Owner)

	u, err = p.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, u.Projectiles)

	_, _ = st.AppendProjectile(shot("bob", 4))
	u, err = p.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, u.Projectiles, 1)
	assert.Equal(t, 4.0, u.Projectiles[0].X)
}

// switchable swaps the store behind a Local transport to simulate a restarted host.
type switchable struct {
	mu sync.Mutex
	*Local
	fail error
}

func (s *switchable) Players(ctx context.Context) (protocol.Players, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return protocol.Players{}, s.fail
	}
	return s.Local.Players(ctx)
}

func (s *switchable) ProjectilesAfter(ctx context.Context, after uint64) (protocol.Projectiles, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Local.ProjectilesAfter(ctx, after)
}

func TestPollResetsOnNewMatch(t *testing.T) {
	first := store.New(0)
	_ = first.UpsertPlayer(protocol.PlayerRecord{Name: "bob"})
	_, _ = first.AppendProjectile(shot("bob", 1))
	_, _ = first.AppendProjectile(shot("bob", 2))

	tr := &switchable{Local: NewLocal(first)}
	p := NewPoller(tr, "me", time.Millisecond, time.Second)
	_, err := p.Poll(context.Background())
	require.NoError(t, err)

	second := store.New(0)
	_ = second.UpsertPlayer(protocol.PlayerRecord{Name: "bob"})
	_, _ = second.AppendProjectile(shot("bob", 9))
	tr.mu.Lock()
	tr.Local = NewLocal(second)
	tr.mu.Unlock()

	u, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, u.Reset)
	assert.Equal(t, second.MatchID(), u.Match)
	require.Len(t, u.Joined, 1, "bob must be re-announced in the new match")
	require.Len(t, u.Projectiles, 1, "cursor restarts at zero")
	assert.Equal(t, 9.0, u.Projectiles[0].X)
}

func TestFailedPollCommitsNothing(t *testing.T) {
	st := store.New(0)
	_ = st.UpsertPlayer(protocol.PlayerRecord{Name: "bob"})
	tr := &switchable{Local: NewLocal(st), fail: errors.New("connection refused")}
	p := NewPoller(tr, "me", time.Millisecond, time.Second)

	_, err := p.Poll(context.Background())
	assert.Error(t, err)

	tr.mu.Lock()
	tr.fail = nil
	tr.mu.Unlock()
	u, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, u.Joined, 1)
}

func TestRunDeliversUpdatesAndCloses(t *testing.T) {
	st := store.New(0)
	_ = st.UpsertPlayer(protocol.PlayerRecord{Name: "bob"})
	p := NewPoller(NewLocal(st), "me", 5*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case u := <-p.Updates():
		assert.Len(t, u.Joined, 1)
	case <-time.After(time.Second):
		t.Fatalf("no update delivered")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("poller did not stop")
	}
	for range p.Updates() {
	}
}

func TestPushPlayerIsLatestWins(t *testing.T) {
	p := NewPusher(NewLocal(store.New(0)), time.Second)
	p.PushPlayer(protocol.PlayerRecord{Name: "me", X: 1})
	p.PushPlayer(protocol.PlayerRecord{Name: "me", X: 2})
	p.PushPlayer(protocol.PlayerRecord{Name: "me", X: 3})
	assert.Len(t, p.player, 1)
	assert.Equal(t, 3.0, (<-p.player).X)
}

func TestPusherSendsShotsInOrder(t *testing.T) {
	st := store.New(0)
	p := NewPusher(NewLocal(st), time.Second)
	var mu sync.Mutex
	var seqs []uint64
	p.OnAppended = func(seq uint64) {
		mu.Lock()
		seqs = append(seqs, seq)
		mu.Unlock()
	}
	for i := 1; i <= 3; i++ {
		assert.True(t, p.PushShot(shot("me", float64(i))))
	}
	p.PushPlayer(protocol.PlayerRecord{Name: "me", X: 42})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool {
		_, ok := st.Player("me")
		return ok && len(st.Projectiles()) == 3
	}, time.Second, 5*time.Millisecond)

	recs := st.Projectiles()
	for i, rec := range recs {
		assert.Equal(t, float64(i+1), rec.X)
	}
	mu.Lock()
	assert.Equal(t, []uint64{1, 2, 3}, seqs)
	mu.Unlock()
}

func TestPushShotDropsWhenFull(t *testing.T) {
	p := NewPusher(NewLocal(store.New(0)), time.Second)
	for i := 0; i < shotQueue; i++ {
		assert.True(t, p.PushShot(shot("me", 1)))
	}
	assert.False(t, p.PushShot(shot("me", 1)))
}

// flakyAppend fails the first n appends the way a dropped connection would.
type flakyAppend struct {
	*Local
	fails atomic.Int32
}

func (f *flakyAppend) AppendProjectile(ctx context.Context, rec protocol.ProjectileRecord) (uint64, error) {
	if f.fails.Add(-1) >= 0 {
		return 0, errors.New("connection reset by peer")
	}
	return f.Local.AppendProjectile(ctx, rec)
}

func TestPusherResendsShotAfterFailedPush(t *testing.T) {
	st := store.New(0)
	tr := &flakyAppend{Local: NewLocal(st)}
	tr.fails.Store(2)
	p := NewPusher(tr, time.Second)
	p.retryWait = time.Millisecond

	require.True(t, p.PushShot(shot("me", 1)))
	require.True(t, p.PushShot(shot("me", 2)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)
	for i := 0; i < 20; i++ {
		p.PushPlayer(protocol.PlayerRecord{Name: "me", X: float64(i)})
		time.Sleep(time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return len(st.Projectiles()) == 2
	}, time.Second, 5*time.Millisecond, "failed shot was never resent")
	recs := st.Projectiles()
	assert.Equal(t, 1.0, recs[0].X)
	assert.Equal(t, 2.0, recs[1].X)
	assert.Eventually(t, func() bool {
		_, ok := st.Player("me")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestPusherSkipsRejectedShot(t *testing.T) {
	st := store.New(0)
	p := NewPusher(NewLocal(st), time.Second)
	bad := shot("me", 1)
	bad.Radius = 0
	require.True(t, p.PushShot(bad))
	require.True(t, p.PushShot(shot("me", 2)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool {
		return len(st.Projectiles()) == 1
	}, time.Second, 5*time.Millisecond, "a rejected shot must not block the queue")
	assert.Equal(t, 2.0, st.Projectiles()[0].X)
}
