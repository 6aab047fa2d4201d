package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/internal/cache"
	"prism-board/internal/config"
	"prism-board/internal/service"
	"prism-board/internal/storage"
)

func main() {
	if config.Debug() {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("board service starting")

	cfg, err := config.LoadService()
	if err != nil {
		log.Fatal(err)
	}
	st, err := storage.New(cfg.Storage.ConnectionString, cfg.Storage.BoardsTable, cfg.Storage.CommandQueue, cfg.Storage.EventsQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisOpts, err := config.RedisOptions(cfg.Redis.ConnectionString)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	rc := redis.NewClient(redisOpts)
	defer rc.Close()

	logger := log.StandardLogger()
	svc := service.New(st.Boards, st, cache.New(rc, cfg.Redis.BoardCacheTTL, logger), service.Options{
		SaveRetries:    cfg.SaveRetries,
		UpdatesChannel: cfg.Redis.UpdatesChannel,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := service.NewWorker(st.Commands, svc, cfg.PollInterval, logger)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("worker stopped: %v", err)
	}
	log.Info("board service stopped")
}
