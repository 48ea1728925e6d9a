package termview

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"artillery/game"
)

type Action uint8

const (
	ActLeft Action = iota + 1
	ActRight
	ActRotateCW
	ActRotateCCW
	ActPowerUp
	ActPowerDown
	ActFire
)

// Key identifies a terminal key: a special key, or KeyRune plus the rune.
type Key struct {
	Key  tcell.Key
	Rune rune
}

func RuneKey(r rune) Key { return Key{Key: tcell.KeyRune, Rune: r} }

// Binding assigns an action to one of the local players, counted from 0.
type Binding struct {
	Player int
	Action Action
}

type Keymap map[Key]Binding

// SingleKeymap is the layout for one local player.
func SingleKeymap() Keymap {
	return Keymap{
		RuneKey('a'):          {0, ActLeft},
		RuneKey('d'):          {0, ActRight},
		{Key: tcell.KeyUp}:    {0, ActPowerUp},
		{Key: tcell.KeyDown}:  {0, ActPowerDown},
		{Key: tcell.KeyRight}: {0, ActRotateCW},
		{Key: tcell.KeyLeft}:  {0, ActRotateCCW},
		RuneKey(' '):          {0, ActFire},
	}
}

// SharedKeymap splits the keyboard between two players on one machine.
func SharedKeymap() Keymap {
	return Keymap{
		RuneKey('a'): {0, ActLeft},
		RuneKey('d'): {0, ActRight},
		RuneKey('w'): {0, ActPowerUp},
		RuneKey('s'): {0, ActPowerDown},
		RuneKey('e'): {0, ActRotateCW},
		RuneKey('q'): {0, ActRotateCCW},
		RuneKey('x'): {0, ActFire},

		RuneKey('j'): {1, ActLeft},
		RuneKey('l'): {1, ActRight},
		RuneKey('i'): {1, ActPowerUp},
		RuneKey('k'): {1, ActPowerDown},
		RuneKey('o'): {1, ActRotateCW},
		RuneKey('u'): {1, ActRotateCCW},
		RuneKey('m'): {1, ActFire},
	}
}

// HoldWindow is how long a key counts as held after its last press or auto-repeat.
// Terminals report no key release.
const HoldWindow = 150 * time.Millisecond

// Keys turns key presses into per-player held inputs.
type Keys struct {
	keymap  Keymap
	players int
	held    map[Binding]time.Time
	fire    []bool
}

func NewKeys(km Keymap, players int) *Keys {
	return &Keys{
		keymap:  km,
		players: players,
		held:    make(map[Binding]time.Time),
		fire:    make([]bool, players),
	}
}

// Press records a key event and reports whether it was bound.
func (k *Keys) Press(ev *tcell.EventKey, now time.Time) bool {
	key := Key{Key: ev.Key()}
	if ev.Key() == tcell.KeyRune {
		key.Rune = ev.Rune()
		if key.Rune >= 'A' && key.Rune <= 'Z' {
			key.Rune += 'a' - 'A'
		}
	}
	b, ok := k.keymap[key]
	if !ok || b.Player >= k.players {
		return false
	}
	if b.Action == ActFire {
		k.fire[b.Player] = true
		return true
	}
	k.held[b] = now
	return true
}

// Inputs returns the current input of every player and consumes pending fire presses.
func (k *Keys) Inputs(now time.Time) []game.Input {
	out := make([]game.Input, k.players)
	for b, at := range k.held {
		if now.Sub(at) > HoldWindow {
			delete(k.held, b)
			continue
		}
		in := &out[b.Player]
		switch b.Action {
		case ActLeft:
			in.Left = true
		case ActRight:
			in.Right = true
		case ActRotateCW:
			in.RotateCW = true
		case ActRotateCCW:
			in.RotateCCW = true
		case ActPowerUp:
			in.PowerUp = true
		case ActPowerDown:
			in.PowerDown = true
		}
	}
	for i, f := range k.fire {
		out[i].Fire = f
		k.fire[i] = false
	}
	return out
}
