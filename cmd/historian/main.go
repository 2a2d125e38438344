// cmd/historian drains the Redis move queue into PostgreSQL. Run with
// "replay <game-id>" to re-check an archived game instead.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/caps/internal/cache"
	"github.com/jason-s-yu/caps/internal/database"
	"github.com/jason-s-yu/caps/internal/historian"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	logger := logrus.New()
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			logger.Fatalf("invalid LOG_LEVEL %q: %v", lvl, err)
		}
		logger.SetLevel(parsed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, database.ConnString())
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	store := database.NewMoveStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatalf("database: %v", err)
	}

	if len(os.Args) == 3 && os.Args[1] == "replay" {
		replay(ctx, logger, store, os.Args[2])
		return
	}

	if err := cache.ConnectRedis(); err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer cache.Rdb.Close()

	svc := historian.NewService(cache.Rdb, store, historian.Config{
		Queue:      cache.QueueName(),
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity: time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}, logger)
	if err := svc.Run(ctx); err != nil {
		logger.WithError(err).Error("final flush failed")
	}
	logger.Info("historian shutdown complete")
}

func replay(ctx context.Context, logger *logrus.Logger, store *database.MoveStore, arg string) {
	id, err := uuid.Parse(arg)
	if err != nil {
		logger.Fatalf("bad game id %q: %v", arg, err)
	}
	recs, err := store.LoadMoves(ctx, id)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	if len(recs) == 0 {
		// Not archived yet; look at what is still queued.
		if err := cache.ConnectRedis(); err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer cache.Rdb.Close()
		if recs, err = cache.ReadMoves(ctx, cache.Rdb, cache.QueueName(), id); err != nil {
			logger.Fatalf("%v", err)
		}
	}
	g, err := historian.Replay(recs)
	if err != nil {
		logger.WithField("game_id", id).Fatalf("replay failed: %v", err)
	}

	var out []int
	for p := range g.Hands() {
		if g.Finished(p) {
			out = append(out, p)
		}
	}
	logger.WithFields(logrus.Fields{
		"game_id":  id,
		"moves":    len(recs),
		"finished": out,
		"holder":   g.CurrentHolder(),
	}).Info("replay matches archive")
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
