package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// GameStore keeps live tables in memory, keyed by id.
type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*CapsGame
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*CapsGame),
	}
}

func (s *GameStore) AddGame(game *CapsGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
}

func (s *GameStore) GetGame(id uuid.UUID) (*CapsGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[id]
	return g, exists
}

func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// Len returns the number of tables held.
func (s *GameStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

// ReapFinished drops tables that ended more than maxAge ago and returns how many it removed.
func (s *GameStore) ReapFinished(maxAge time.Duration) int {
	s.mu.Lock()
	candidates := make([]*CapsGame, 0, len(s.games))
	for _, g := range s.games {
		candidates = append(candidates, g)
	}
	s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var stale []uuid.UUID
	for _, g := range candidates {
		g.Mu.Lock()
		if g.GameOver && g.EndedAt.Before(cutoff) {
			stale = append(stale, g.ID)
		}
		g.Mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range stale {
		delete(s.games, id)
	}
	return len(stale)
}
