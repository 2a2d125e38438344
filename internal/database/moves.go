package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-s-yu/caps/internal/cache"
)

// ErrGameNotFound is returned by LoadGame for unknown ids.
var ErrGameNotFound = errors.New("archived game not found")

// Schema creates the archive tables when they are missing.
const Schema = `
CREATE TABLE IF NOT EXISTS caps_games (
	id         UUID PRIMARY KEY,
	seed       BIGINT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'in_progress',
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS caps_moves (
	game_id   UUID NOT NULL REFERENCES caps_games(id) ON DELETE CASCADE,
	seq       INT NOT NULL,
	seat      SMALLINT NOT NULL,
	kind      TEXT NOT NULL,
	slots     INT[] NOT NULL DEFAULT '{}',
	cards     TEXT[] NOT NULL DEFAULT '{}',
	holder    SMALLINT NOT NULL,
	active    TEXT NOT NULL,
	game_over BOOLEAN NOT NULL DEFAULT FALSE,
	played_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, seq)
);
`

// ArchivedGame is a caps_games row.
type ArchivedGame struct {
	ID        uuid.UUID  `json:"id"`
	Seed      int64      `json:"seed"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// MoveStore archives move records in PostgreSQL.
type MoveStore struct {
	Pool *pgxpool.Pool
}

func NewMoveStore(pool *pgxpool.Pool) *MoveStore {
	return &MoveStore{Pool: pool}
}

// EnsureSchema applies Schema.
func (s *MoveStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// SaveMoves writes recs in one transaction, creating game rows as needed.
// Records already stored are skipped so a retried batch is harmless.
func (s *MoveStore) SaveMoves(ctx context.Context, recs []cache.MoveRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range recs {
			batch.Queue(`
				INSERT INTO caps_games (id, seed, status, start_time)
				VALUES ($1, $2, 'in_progress', $3)
				ON CONFLICT (id) DO NOTHING
			`, rec.GameID, rec.Seed, time.UnixMilli(rec.Timestamp))

			slots := rec.Slots
			if slots == nil {
				slots = []int{}
			}
			cards := rec.Cards
			if cards == nil {
				cards = []string{}
			}
			batch.Queue(`
				INSERT INTO caps_moves (game_id, seq, seat, kind, slots, cards, holder, active, game_over, played_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (game_id, seq) DO NOTHING
			`, rec.GameID, rec.Seq, rec.Seat, rec.Kind, slots, cards, rec.Holder, rec.Active, rec.GameOver, time.UnixMilli(rec.Timestamp))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting %d moves: %w", len(recs), err)
		}
		return nil
	})
}

// MarkFinished sets the final status of a game that is still in progress.
func (s *MoveStore) MarkFinished(ctx context.Context, gameID uuid.UUID, status string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE caps_games
		SET status = $2, end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`, gameID, status)
	if err != nil {
		return fmt.Errorf("marking game %s %s: %w", gameID, status, err)
	}
	return nil
}

// LoadGame returns the game row for gameID.
func (s *MoveStore) LoadGame(ctx context.Context, gameID uuid.UUID) (ArchivedGame, error) {
	var g ArchivedGame
	err := s.Pool.QueryRow(ctx, `
		SELECT id, seed, status, start_time, end_time FROM caps_games WHERE id = $1
	`, gameID).Scan(&g.ID, &g.Seed, &g.Status, &g.StartTime, &g.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return g, ErrGameNotFound
	}
	if err != nil {
		return g, fmt.Errorf("loading game %s: %w", gameID, err)
	}
	return g, nil
}

// LoadMoves returns the archived moves of gameID ordered by seq.
func (s *MoveStore) LoadMoves(ctx context.Context, gameID uuid.UUID) ([]cache.MoveRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT m.game_id, g.seed, m.seq, m.seat, m.kind, m.slots, m.cards, m.holder, m.active, m.game_over, m.played_at
		FROM caps_moves m JOIN caps_games g ON g.id = m.game_id
		WHERE m.game_id = $1
		ORDER BY m.seq
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("loading moves for %s: %w", gameID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cache.MoveRecord, error) {
		var rec cache.MoveRecord
		var playedAt time.Time
		err := row.Scan(&rec.GameID, &rec.Seed, &rec.Seq, &rec.Seat, &rec.Kind, &rec.Slots,
			&rec.Cards, &rec.Holder, &rec.Active, &rec.GameOver, &playedAt)
		rec.Timestamp = playedAt.UnixMilli()
		return rec, err
	})
}
