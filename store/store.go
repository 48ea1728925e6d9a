// Package store holds the host's authoritative replication tables: the player table and
// the append-only projectile log. Every method is safe for concurrent use by request
// handlers and the host's own simulation tick.
package store

import (
	"sync"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"artillery/protocol"
)

var ErrInvalidRecord = errors.New("invalid record")

type Store struct {
	mu sync.RWMutex

	match   uuid.UUID
	players map[string]protocol.PlayerRecord
	order   []string // join order, names are never removed

	log     []protocol.ProjectileRecord
	lastSeq uint64
	retain  int // 0 keeps every entry
}

// New creates an empty store. retain bounds the projectile log; 0 keeps it all.
func New(retain int) *Store {
	if retain < 0 {
		retain = 0
	}
	return &Store{
		match:   uuid.NewV4(),
		players: make(map[string]protocol.PlayerRecord),
		retain:  retain,
	}
}

// MatchID identifies this store instance; a restarted host gets a new one.
func (s *Store) MatchID() string {
	return s.match.String()
}

// UpsertPlayer inserts or overwrites a player record. An invalid record leaves the
// table untouched.
func (s *Store) UpsertPlayer(rec protocol.PlayerRecord) error {
	if err := rec.Validate(); err != nil {
		return errors.Wrap(ErrInvalidRecord, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.players[rec.Name]; !known {
		s.order = append(s.order, rec.Name)
	}
	s.players[rec.Name] = copyPlayer(rec)
	return nil
}

// Player returns one record.
func (s *Store) Player(name string) (protocol.PlayerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.players[name]
	if !ok {
		return protocol.PlayerRecord{}, false
	}
	return copyPlayer(rec), true
}

// Players returns a full snapshot in join order.
func (s *Store) Players() []protocol.PlayerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.PlayerRecord, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, copyPlayer(s.players[name]))
	}
	return out
}

// AppendProjectile pushes a record to the end of the log and returns its sequence
// number. Records are never deduplicated.
func (s *Store) AppendProjectile(rec protocol.ProjectileRecord) (uint64, error) {
	if err := rec.Validate(); err != nil {
		return 0, errors.Wrap(ErrInvalidRecord, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeq++
	rec.Seq = s.lastSeq
	s.log = append(s.log, rec)
	if s.retain > 0 && len(s.log) > s.retain {
		drop := len(s.log) - s.retain
		kept := make([]protocol.ProjectileRecord, s.retain)
		copy(kept, s.log[drop:])
		s.log = kept
	}
	return rec.Seq, nil
}

// Projectiles returns the whole retained log.
func (s *Store) Projectiles() []protocol.ProjectileRecord {
	recs, _ := s.ProjectilesAfter(0)
	return recs
}

// ProjectilesAfter returns every retained entry with Seq > cursor and the cursor to use
// next time.
func (s *Store) ProjectilesAfter(cursor uint64) ([]protocol.ProjectileRecord, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cursor >= s.lastSeq {
		return nil, s.lastSeq
	}
	start := 0
	if len(s.log) > 0 {
		// Seq is contiguous within the retained window.
		first := s.log[0].Seq
		if cursor >= first {
			start = int(cursor - first + 1)
		}
	}
	out := make([]protocol.ProjectileRecord, len(s.log)-start)
	copy(out, s.log[start:])
	return out, s.lastSeq
}

// Status summarizes the tables.
func (s *Store) Status() protocol.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return protocol.Status{
		V:           protocol.Version,
		Match:       s.match.String(),
		Players:     len(s.order),
		Projectiles: s.lastSeq,
	}
}

func copyPlayer(rec protocol.PlayerRecord) protocol.PlayerRecord {
	if rec.Health != nil {
		h := *rec.Health
		rec.Health = &h
	}
	return rec
}
