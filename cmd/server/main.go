// cmd/server/main.go
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/caps/internal/auth"
	"github.com/jason-s-yu/caps/internal/cache"
	"github.com/jason-s-yu/caps/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
)

// finishedGameTTL is how long a finished table stays readable before it is reaped.
const finishedGameTTL = 10 * time.Minute

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			logger.Fatalf("invalid LOG_LEVEL %q: %v", lvl, err)
		}
		logger.SetLevel(parsed)
	}

	if priv, pub := os.Getenv("AUTH_PRIVATE_KEY"), os.Getenv("AUTH_PUBLIC_KEY"); priv != "" && pub != "" {
		if err := auth.InitFromPath(priv, pub); err != nil {
			logger.Fatalf("auth init: %v", err)
		}
	} else if err := auth.Init(); err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	// The move log is optional; games run without it.
	if err := cache.ConnectRedis(); err != nil {
		logger.WithError(err).Warn("redis unavailable, moves will not be published")
		cache.Rdb = nil
	} else {
		logger.WithField("queue", cache.QueueName()).Info("publishing moves to redis")
	}

	srv := handlers.NewGameServer(logger)
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, srv)

	go func() {
		for range time.Tick(time.Minute) {
			if n := srv.GameStore.ReapFinished(finishedGameTTL); n > 0 {
				logger.WithField("count", n).Debug("reaped finished games")
			}
		}
	}()

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
