// Package sfx plays short sound cues for scene events.
package sfx

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"artillery/game"
)

const sampleRate = beep.SampleRate(44100)

const (
	fireTone     = 660.0
	fireLength   = 60 * time.Millisecond
	impactLength = 250 * time.Millisecond
	deathLength  = 600 * time.Millisecond
)

// Player mixes cues onto the speaker. Until Init succeeds every call is a no-op.
type Player struct {
	mu    sync.Mutex
	mixer *beep.Mixer
	ready bool
}

func New() *Player {
	return &Player{mixer: &beep.Mixer{}}
}

// Init opens the audio device.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.ready = true
	return nil
}

// Play queues one cue per event.
func (p *Player) Play(events []game.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready || len(events) == 0 {
		return
	}
	speaker.Lock()
	for _, ev := range events {
		if s := Cue(ev.Kind); s != nil {
			p.mixer.Add(s)
		}
	}
	speaker.Unlock()
}

func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return
	}
	speaker.Clear()
	speaker.Close()
	p.ready = false
}

// Cue builds the finite streamer for an event kind, nil when the kind is silent.
func Cue(kind game.EventKind) beep.Streamer {
	switch kind {
	case game.EventFire:
		tone, err := generators.SineTone(sampleRate, fireTone)
		if err != nil {
			return nil
		}
		return quieter(beep.Take(sampleRate.N(fireLength), tone), -2)
	case game.EventImpact:
		return quieter(newBurst(sampleRate.N(impactLength)), -1)
	case game.EventTankDestroyed:
		return newBurst(sampleRate.N(deathLength))
	}
	return nil
}

func quieter(s beep.Streamer, volume float64) beep.Streamer {
	return &effects.Volume{Streamer: s, Base: 2, Volume: volume}
}

// burst is white noise under a linear fade out.
type burst struct {
	pos, length int
}

func newBurst(length int) *burst {
	return &burst{length: length}
}

func (b *burst) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if b.pos >= b.length {
			return i, i > 0
		}
		env := 1 - float64(b.pos)/float64(b.length)
		v := (rand.Float64()*2 - 1) * env * env
		v = math.Max(-1, math.Min(1, v))
		samples[i][0] = v
		samples[i][1] = v
		b.pos++
	}
	return len(samples), true
}

func (b *burst) Err() error { return nil }
