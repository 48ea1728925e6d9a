package room

import (
	"testing"
	"time"

	"artillery/game"
	"artillery/protocol"
	"artillery/replication"
)

type fakePublisher struct {
	players []protocol.PlayerRecord
	shots   []protocol.ProjectileRecord
}

func (f *fakePublisher) PushPlayer(rec protocol.PlayerRecord) { f.players = append(f.players, rec) }
func (f *fakePublisher) PushShot(rec protocol.ProjectileRecord) bool {
	f.shots = append(f.shots, rec)
	return true
}

func flatRoom(t *testing.T) *Room {
	t.Helper()
	p := game.DefaultParams()
	ground, err := game.NewFlatTerrain(p.Width, p.Height, 700)
	if err != nil {
		t.Fatalf("terrain: %v", err)
	}
	return New(game.NewState(p, ground), protocol.SimTickHz)
}

func TestRoomAddTankShowsInSnapshot(t *testing.T) {
	r := flatRoom(t)
	go r.Run()
	defer r.Stop()

	reply := make(chan AddTankResult, 1)
	r.Inbox <- AddTank{Name: "alice", X: 300, Friendly: true, Reply: reply}
	res := <-reply
	if res.Tank == 0 {
		t.Fatalf("expected tank id, got zero")
	}

	scenes := make(chan game.Scene, 1)
	r.Inbox <- Snapshot{Reply: scenes}
	select {
	case sc := <-scenes:
		if len(sc.Tanks) != 1 || sc.Tanks[0].ID != res.Tank || sc.Tanks[0].Name != "alice" {
			t.Fatalf("snapshot tanks = %+v, want alice", sc.Tanks)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
}

func TestRoomTicksAndCallsOnFrame(t *testing.T) {
	r := flatRoom(t)
	frames := make(chan game.Scene, 256)
	r.OnFrame = func(sc game.Scene) {
		select {
		case frames <- sc:
		default:
		}
	}
	go r.Run()
	defer r.Stop()

	deadline := time.After(300 * time.Millisecond)
	count := 0
	for {
		select {
		case <-frames:
			count++
		case <-deadline:
			// 60Hz for 0.3s => ~18 frames
			if count < 5 || count > 30 {
				t.Fatalf("unexpected frame count in 300ms: %d", count)
			}
			return
		}
	}
}

func TestIntentMovesTank(t *testing.T) {
	r := flatRoom(t)
	id := r.spawnLocal("alice", 300, true)
	r.handleCommand(Intent{Tank: id, Input: game.Input{Right: true}})

	for i := 0; i < 10; i++ {
		r.advance(16)
	}
	tank, _ := r.state.Tank(id)
	if tank.X != 310 {
		t.Fatalf("x after 10 ticks right = %f, want 310", tank.X)
	}

	r.handleCommand(Intent{Tank: id, Input: game.Input{}})
	r.advance(16)
	if tank.X != 310 {
		t.Fatalf("released tank kept moving: x=%f", tank.X)
	}
}

func TestFireIsConsumedByOneTick(t *testing.T) {
	r := flatRoom(t)
	pub := &fakePublisher{}
	r.Replicate("alice", nil, pub)
	id := r.spawnLocal("alice", 300, true)

	r.handleCommand(Intent{Tank: id, Input: game.Input{Fire: true}})
	// a release before the tick must not swallow the press
	r.handleCommand(Intent{Tank: id, Input: game.Input{}})
	r.advance(16)
	r.advance(16)

	if len(pub.shots) != 1 {
		t.Fatalf("shots pushed = %d, want 1", len(pub.shots))
	}
	tank, _ := r.state.Tank(id)
	x, y := tank.TurretTip(r.state.Params)
	if pub.shots[0].Owner != "alice" || pub.shots[0].X != x || pub.shots[0].Y != y {
		t.Fatalf("shot record = %+v, want owner alice at (%f,%f)", pub.shots[0], x, y)
	}
	if pub.shots[0].Damage != 30 || pub.shots[0].Radius != 5 {
		t.Fatalf("shot record = %+v, want damage 30 radius 5", pub.shots[0])
	}
}

func TestSelfPushedEveryTick(t *testing.T) {
	r := flatRoom(t)
	pub := &fakePublisher{}
	r.Replicate("alice", nil, pub)
	id := r.spawnLocal("alice", 300, true)

	for i := 0; i < 3; i++ {
		r.advance(16)
	}
	if len(pub.players) != 3 {
		t.Fatalf("player pushes = %d, want 3", len(pub.players))
	}
	last := pub.players[2]
	if last.Name != "alice" || last.X != 300 || last.Health == nil || *last.Health != 200 {
		t.Fatalf("pushed record = %+v", last)
	}

	tank, _ := r.state.Tank(id)
	r.state.ApplyDamage(tank, 500)
	r.advance(16)
	r.advance(16)
	last = pub.players[len(pub.players)-1]
	if last.Health == nil || *last.Health > 0 {
		t.Fatalf("dead tank pushed health %v, want <= 0", last.Health)
	}
}

func TestRemoteTankFollowsSnapshots(t *testing.T) {
	r := flatRoom(t)
	updates := make(chan replication.Update, 4)
	r.Replicate("alice", updates, &fakePublisher{})
	r.spawnLocal("alice", 300, true)

	bob := protocol.PlayerRecord{Name: "bob", X: 900, Y: 650, Angle: 200, Power: 70}
	updates <- replication.Update{Joined: []protocol.PlayerRecord{bob}, Players: []protocol.PlayerRecord{bob}}
	r.advance(16)

	tank, ok := r.state.TankByName("bob")
	if !ok {
		t.Fatalf("remote tank not spawned")
	}
	if !tank.Remote || tank.Friendly {
		t.Fatalf("remote tank flags: remote=%v friendly=%v", tank.Remote, tank.Friendly)
	}
	if tank.X != 900 || tank.Angle != 200 || tank.Power != 70 {
		t.Fatalf("remote tank = %+v", tank)
	}

	bob.X = 950
	bob.Angle = 10
	updates <- replication.Update{Players: []protocol.PlayerRecord{bob}}
	r.advance(16)
	if tank.X != 950 || tank.Angle != 10 {
		t.Fatalf("remote tank not overwritten: x=%f angle=%f", tank.X, tank.Angle)
	}

	// inputs never drive a remote tank
	r.handleCommand(Intent{Tank: tank.ID, Input: game.Input{Right: true}})
	r.advance(16)
	if tank.X != 950 {
		t.Fatalf("remote tank moved by input: x=%f", tank.X)
	}
}

func TestRemoteHealthZeroKills(t *testing.T) {
	r := flatRoom(t)
	updates := make(chan replication.Update, 4)
	r.Replicate("alice", updates, &fakePublisher{})

	dead := 0.0
	bob := protocol.PlayerRecord{Name: "bob", X: 900, Y: 650, Power: 50}
	updates <- replication.Update{Joined: []protocol.PlayerRecord{bob}}
	r.advance(16)
	bob.Health = &dead
	updates <- replication.Update{Players: []protocol.PlayerRecord{bob}}
	r.advance(16)

	if _, ok := r.state.TankByName("bob"); ok {
		t.Fatalf("bob should be gone after reporting zero health")
	}
	if len(r.state.Explosions) == 0 {
		t.Fatalf("expected a death explosion")
	}
}

func TestRemoteProjectileSpawnsOnce(t *testing.T) {
	r := flatRoom(t)
	updates := make(chan replication.Update, 4)
	r.Replicate("alice", updates, &fakePublisher{})

	updates <- replication.Update{Projectiles: []protocol.ProjectileRecord{
		{Seq: 1, Owner: "bob", X: 400, Y: 100, Radius: 5, Angle: 0, Power: 40, Damage: 30},
	}}
	r.advance(16)
	if len(r.state.Projectiles) != 1 {
		t.Fatalf("projectiles = %d, want 1", len(r.state.Projectiles))
	}
	p := r.state.Projectiles[0]
	if p.Owner != "bob" || p.X != 410 {
		t.Fatalf("projectile = %+v, want bob's shot one step along", p)
	}
	r.advance(16)
	if len(r.state.Projectiles) != 1 {
		t.Fatalf("projectile duplicated: %d", len(r.state.Projectiles))
	}
}

func TestResetDropsRemoteTanks(t *testing.T) {
	r := flatRoom(t)
	updates := make(chan replication.Update, 4)
	r.Replicate("alice", updates, &fakePublisher{})
	r.spawnLocal("alice", 300, true)

	bob := protocol.PlayerRecord{Name: "bob", X: 900, Y: 650, Power: 50}
	updates <- replication.Update{Joined: []protocol.PlayerRecord{bob}, Players: []protocol.PlayerRecord{bob}}
	r.advance(16)

	carol := protocol.PlayerRecord{Name: "carol", X: 600, Y: 650, Power: 50}
	updates <- replication.Update{Reset: true, Joined: []protocol.PlayerRecord{carol}, Players: []protocol.PlayerRecord{carol}}
	r.advance(16)

	if _, ok := r.state.TankByName("bob"); ok {
		t.Fatalf("bob survived a match reset")
	}
	if _, ok := r.state.TankByName("carol"); !ok {
		t.Fatalf("carol missing after reset")
	}
	if _, ok := r.state.TankByName("alice"); !ok {
		t.Fatalf("local tank removed by reset")
	}
}

func TestClosedUpdatesChannelIsIgnored(t *testing.T) {
	r := flatRoom(t)
	updates := make(chan replication.Update)
	close(updates)
	r.Replicate("alice", updates, &fakePublisher{})
	r.advance(16)
	r.advance(16)
	if r.state.Tick != 2 {
		t.Fatalf("tick = %d, want 2", r.state.Tick)
	}
}
