// Package historian drains the move queue into long-term storage and
// verifies each finished game by replaying it through the engine.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/caps/internal/cache"
)

// Game statuses written by the historian.
const (
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
	StatusInvalid   = "invalid"
)

// Store persists move records and final game statuses.
type Store interface {
	SaveMoves(ctx context.Context, recs []cache.MoveRecord) error
	MarkFinished(ctx context.Context, gameID uuid.UUID, status string) error
}

// Config tunes batching and abandonment.
type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration
}

// Service pops move records from Redis, saves them in batches and closes games
// once they end or go quiet.
type Service struct {
	rdb    redis.Cmdable
	store  Store
	cfg    Config
	logger logrus.FieldLogger

	mu      sync.Mutex
	batch   []cache.MoveRecord
	pending map[uuid.UUID][]cache.MoveRecord
	seen    map[uuid.UUID]time.Time
	// lastSeq holds the seq of a game's game_over record once it has arrived.
	lastSeq map[uuid.UUID]int
}

func NewService(rdb redis.Cmdable, store Store, cfg Config, logger logrus.FieldLogger) *Service {
	if cfg.Queue == "" {
		cfg.Queue = cache.DefaultQueueName
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = 10 * time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		rdb:     rdb,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		pending: make(map[uuid.UUID][]cache.MoveRecord),
		seen:    make(map[uuid.UUID]time.Time),
		lastSeq: make(map[uuid.UUID]int),
	}
}

// Run consumes the queue until ctx is cancelled, then flushes what it holds.
func (s *Service) Run(ctx context.Context) error {
	flush := time.NewTicker(s.cfg.FlushDelay)
	defer flush.Stop()
	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()

	s.logger.WithField("queue", s.cfg.Queue).Info("historian started")
	for {
		select {
		case <-ctx.Done():
			// ctx is gone; give the final flush its own deadline.
			fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.Flush(fctx)
		case <-flush.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.WithError(err).Error("flush failed")
			}
		case now := <-sweep.C:
			s.SweepInactive(ctx, now)
		default:
			res, err := s.rdb.BLPop(ctx, time.Second, s.cfg.Queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					s.logger.WithError(err).Error("BLPOP failed")
					time.Sleep(time.Second)
				}
				continue
			}
			// res[0] is the queue name and res[1] the payload.
			if len(res) < 2 {
				continue
			}
			var rec cache.MoveRecord
			if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
				s.logger.WithError(err).Warn("invalid move record")
				continue
			}
			if err := s.Ingest(ctx, rec); err != nil {
				s.logger.WithError(err).Error("ingest failed")
			}
		}
	}
}

// Ingest queues rec for saving. Once a game's game_over record and every seq
// before it have arrived, the batch is flushed and the game closed.
func (s *Service) Ingest(ctx context.Context, rec cache.MoveRecord) error {
	s.mu.Lock()
	s.batch = append(s.batch, rec)
	s.pending[rec.GameID] = append(s.pending[rec.GameID], rec)
	s.seen[rec.GameID] = time.Now()
	if rec.GameOver {
		s.lastSeq[rec.GameID] = rec.Seq
	}
	full := len(s.batch) >= s.cfg.BatchSize
	ready := s.completeLocked(rec.GameID)
	s.mu.Unlock()

	if full || ready {
		if err := s.Flush(ctx); err != nil {
			return err
		}
	}
	if ready {
		return s.closeGame(ctx, rec.GameID)
	}
	return nil
}

// completeLocked reports whether seqs 1 through the game_over seq are all pending.
func (s *Service) completeLocked(gameID uuid.UUID) bool {
	last, ok := s.lastSeq[gameID]
	if !ok {
		return false
	}
	have := make(map[int]bool, last)
	for _, rec := range s.pending[gameID] {
		if rec.Seq >= 1 && rec.Seq <= last {
			have[rec.Seq] = true
		}
	}
	return len(have) == last
}

// Flush saves the current batch in one call to the store.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.batch
	s.batch = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := s.store.SaveMoves(ctx, batch); err != nil {
		// Put the records back so the next flush retries them.
		s.mu.Lock()
		s.batch = append(batch, s.batch...)
		s.mu.Unlock()
		return fmt.Errorf("saving %d moves: %w", len(batch), err)
	}
	s.logger.WithField("count", len(batch)).Debug("flushed moves")
	return nil
}

// closeGame replays a finished game and records whether the log held up.
func (s *Service) closeGame(ctx context.Context, gameID uuid.UUID) error {
	s.mu.Lock()
	last := s.lastSeq[gameID]
	var recs []cache.MoveRecord
	// Redelivered records repeat a seq; replay each seq once.
	taken := make(map[int]bool, last)
	for _, rec := range s.pending[gameID] {
		if rec.Seq <= last && !taken[rec.Seq] {
			taken[rec.Seq] = true
			recs = append(recs, rec)
		}
	}
	delete(s.pending, gameID)
	delete(s.seen, gameID)
	delete(s.lastSeq, gameID)
	s.mu.Unlock()

	status := StatusCompleted
	log := s.logger.WithField("game_id", gameID)
	if _, err := Replay(recs); err != nil {
		status = StatusInvalid
		log.WithError(err).Warn("move log failed replay")
	} else {
		log.WithField("moves", len(recs)).Info("game archived")
	}
	return s.store.MarkFinished(ctx, gameID, status)
}

// SweepInactive marks games with no records since Inactivity before now as abandoned.
func (s *Service) SweepInactive(ctx context.Context, now time.Time) {
	var stale []uuid.UUID
	s.mu.Lock()
	for id, last := range s.seen {
		if now.Sub(last) > s.cfg.Inactivity {
			stale = append(stale, id)
			delete(s.seen, id)
			delete(s.pending, id)
			delete(s.lastSeq, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		if err := s.store.MarkFinished(ctx, id, StatusAbandoned); err != nil {
			s.logger.WithError(err).WithField("game_id", id).Error("failed to mark game abandoned")
			continue
		}
		s.logger.WithField("game_id", id).Info("marked game abandoned")
	}
}
