package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/internal/api"
	"prism-board/internal/cache"
	"prism-board/internal/config"
	"prism-board/internal/storage"
	"prism-board/internal/stream"
)

func main() {
	if config.Debug() {
		log.SetLevel(log.DebugLevel)
	}
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Fatal(err)
	}

	// the API only writes commands, events stay with the board service
	store, err := storage.New(cfg.Storage.ConnectionString, cfg.Storage.BoardsTable, cfg.Storage.CommandQueue, "")
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisOpts, err := config.RedisOptions(cfg.Redis.ConnectionString)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	rc := redis.NewClient(redisOpts)
	logger := log.New()
	logger.SetLevel(log.GetLevel())
	deduper := api.NewRedisDeduper(rc, cfg.DeduperTTL)
	boards := cache.New(rc, cfg.Redis.BoardCacheTTL, logger)

	var auth *api.Auth
	if cfg.Auth.TestMode {
		log.Warn("AUTH0_TEST_MODE enabled, accepting HS256 test tokens")
		auth = api.NewTestAuth([]byte(cfg.Auth.TestSecret), cfg.Auth.Audience, "")
	} else {
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth.Domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				log.Errorf("jwks refresh: %v", err)
			},
		})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		defer jwks.EndBackground()
		auth = api.NewAuth(jwks, cfg.Auth.Audience, "https://"+cfg.Auth.Domain+"/", cfg.Auth.JWKSCacheTTL)
	}

	sender := api.NewCommandSender(store, deduper, logger, api.SenderOptions{
		Workers:        cfg.EnqueueWorkers,
		Buffer:         cfg.EnqueueBuffer,
		EnqueueTimeout: cfg.EnqueueTimeout,
		HandoffTimeout: cfg.HandoffTimeout,
	})
	defer sender.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker := stream.NewBroker()
	go stream.Listen(ctx, rc, cfg.Redis.UpdatesChannel, broker, logger)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderContentEncoding, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.Decompress())

	api.Register(e, api.Deps{
		Boards:  store.Boards,
		Cache:   boards,
		Auth:    auth,
		Deduper: deduper,
		Sender:  sender,
		Broker:  broker,
		Logger:  logger,
	})

	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}
