// Package cache publishes accepted moves to a Redis list so an external
// consumer can archive or replay them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list that receives move records.
const DefaultQueueName = "caps_moves"

// ErrNotConnected is returned when publishing before ConnectRedis succeeded.
var ErrNotConnected = errors.New("redis client not connected")

// MoveRecord is one accepted move as the archive sees it.
// Seed and Slots are enough to replay the game from the first record on.
type MoveRecord struct {
	GameID    uuid.UUID `json:"game_id"`
	Seed      int64     `json:"seed"`
	Seq       int       `json:"seq"`
	Seat      int       `json:"seat"`
	Kind      string    `json:"kind"`
	Slots     []int     `json:"slots,omitempty"`
	Cards     []string  `json:"cards,omitempty"`
	Holder    int       `json:"holder"`
	Active    string    `json:"active"`
	GameOver  bool      `json:"game_over,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// QueueName returns the list moves are pushed to, CAPS_MOVE_QUEUE or the default.
func QueueName() string {
	return getEnv("CAPS_MOVE_QUEUE", DefaultQueueName)
}

// PublishMove serializes rec and appends it to the move queue.
func PublishMove(ctx context.Context, rec MoveRecord) error {
	if Rdb == nil {
		return ErrNotConnected
	}
	return PublishMoveTo(ctx, Rdb, QueueName(), rec)
}

// PublishMoveTo pushes rec onto queue using client.
func PublishMoveTo(ctx context.Context, client redis.Cmdable, queue string, rec MoveRecord) error {
	if client == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal MoveRecord: %w", err)
	}
	if err := client.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queue, err)
	}
	return nil
}

// ReadMoves returns every record stored on queue for gameID, in publish order.
func ReadMoves(ctx context.Context, client redis.Cmdable, queue string, gameID uuid.UUID) ([]MoveRecord, error) {
	if client == nil {
		return nil, ErrNotConnected
	}
	raw, err := client.LRange(ctx, queue, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to LRANGE '%s': %w", queue, err)
	}
	var out []MoveRecord
	for _, s := range raw {
		var rec MoveRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("bad record in '%s': %w", queue, err)
		}
		if rec.GameID == gameID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
