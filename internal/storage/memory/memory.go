// Package memory provides an in-memory Store used by tests and local runs
// without PostgreSQL. All state lives behind one RWMutex; records are copied
// on the way in and out so callers never share memory with the store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finalsentence/server/internal/game/phrase"
	"github.com/finalsentence/server/internal/game/typing"
	"github.com/finalsentence/server/internal/storage"
)

// Store is a mutex-guarded map implementation of storage.Store.
type Store struct {
	mu        sync.RWMutex
	players   map[string]storage.Player // keyed by id
	names     map[string]string         // player name -> id
	rooms     map[string]storage.RoomRecord
	codes     map[string]string // active join code -> room id
	matches   []storage.MatchRecord
	phrases   []phrase.Phrase
	phraseIdx map[string]int // trimmed text -> index into phrases
}

var _ storage.Store = (*Store)(nil)

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		players:   make(map[string]storage.Player),
		names:     make(map[string]string),
		rooms:     make(map[string]storage.RoomRecord),
		codes:     make(map[string]string),
		phraseIdx: make(map[string]int),
	}
}

func (s *Store) SavePlayer(_ context.Context, p storage.Player) (storage.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.names[p.Name]; taken {
		return storage.Player{}, storage.ErrDuplicate
	}
	if _, exists := s.players[p.ID]; exists {
		return storage.Player{}, storage.ErrDuplicate
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.players[p.ID] = p
	s.names[p.Name] = p.ID
	return p, nil
}

func (s *Store) GetPlayer(_ context.Context, id string) (storage.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return storage.Player{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetPlayerByName(_ context.Context, name string) (storage.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[name]
	if !ok {
		return storage.Player{}, storage.ErrNotFound
	}
	return s.players[id], nil
}

func (s *Store) CreateRoom(_ context.Context, rec storage.RoomRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.codes[rec.Code]; taken {
		return "", storage.ErrDuplicate
	}
	if _, exists := s.rooms[rec.ID]; exists {
		return "", storage.ErrDuplicate
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Players = clonePlayers(rec.Players)
	s.rooms[rec.ID] = rec
	s.codes[rec.Code] = rec.ID
	return rec.ID, nil
}

func (s *Store) GetRoom(_ context.Context, id string) (storage.RoomRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.rooms[id]
	if !ok {
		return storage.RoomRecord{}, storage.ErrNotFound
	}
	rec.Players = clonePlayers(rec.Players)
	return rec, nil
}

func (s *Store) GetRoomByCode(_ context.Context, code string) (storage.RoomRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.codes[code]
	if !ok {
		return storage.RoomRecord{}, storage.ErrNotFound
	}
	rec := s.rooms[id]
	rec.Players = clonePlayers(rec.Players)
	return rec, nil
}

func (s *Store) UpdateRoom(_ context.Context, rec storage.RoomRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.rooms[rec.ID]
	if !ok {
		return storage.ErrNotFound
	}
	rec.CreatedAt = old.CreatedAt
	rec.UpdatedAt = time.Now()
	rec.Players = clonePlayers(rec.Players)
	s.rooms[rec.ID] = rec
	if old.Code != rec.Code {
		delete(s.codes, old.Code)
		s.codes[rec.Code] = rec.ID
	}
	return nil
}

func (s *Store) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rooms[id]
	if !ok {
		return nil
	}
	delete(s.rooms, id)
	delete(s.codes, rec.Code)
	return nil
}

func (s *Store) SaveMatch(_ context.Context, rec storage.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	rec.Stats = append([]typing.PlayerResult(nil), rec.Stats...)
	rec.Phrases = append([]string(nil), rec.Phrases...)
	s.matches = append(s.matches, rec)
	return nil
}

func (s *Store) GetPlayerStats(_ context.Context, playerID string) (storage.PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats storage.PlayerStats
	var wpmSum float64
	for _, m := range s.matches {
		for _, r := range m.Stats {
			if r.PlayerID != playerID {
				continue
			}
			stats.GamesPlayed++
			stats.TotalErrors += r.Errors
			wpmSum += r.WPM
			if r.WPM > stats.BestWPM {
				stats.BestWPM = r.WPM
			}
			if m.WinnerID == playerID {
				stats.GamesWon++
			}
			break
		}
	}
	if stats.GamesPlayed > 0 {
		stats.AvgWPM = wpmSum / float64(stats.GamesPlayed)
	}
	return stats, nil
}

func (s *Store) GetPhrases(_ context.Context, limit int) ([]phrase.Phrase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.phrases)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]phrase.Phrase, n)
	copy(out, s.phrases[:n])
	return out, nil
}

func (s *Store) SeedPhrases(_ context.Context, phrases []phrase.Phrase) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted, updated int
	for _, p := range phrases {
		p.Text = strings.TrimSpace(p.Text)
		if p.Text == "" {
			continue
		}
		if i, ok := s.phraseIdx[p.Text]; ok {
			s.phrases[i].Difficulty = p.Difficulty
			s.phrases[i].Category = p.Category
			updated++
			continue
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.phraseIdx[p.Text] = len(s.phrases)
		s.phrases = append(s.phrases, p)
		inserted++
	}
	return inserted, updated, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func clonePlayers(in []storage.RoomPlayer) []storage.RoomPlayer {
	if in == nil {
		return nil
	}
	out := make([]storage.RoomPlayer, len(in))
	copy(out, in)
	return out
}
