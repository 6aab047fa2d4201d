package config

import (
	"strings"
	"testing"
	"time"
)

func setServiceEnv(t *testing.T) {
	t.Setenv("STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")
	t.Setenv("BOARDS_TABLE", "Boards")
	t.Setenv("COMMAND_QUEUE", "board-commands")
	t.Setenv("DOMAIN_EVENTS_QUEUE", "board-events")
	t.Setenv("REDIS_CONNECTION_STRING", "localhost:6379")
}

func TestLoadServiceDefaults(t *testing.T) {
	setServiceEnv(t)
	cfg, err := LoadService()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SaveRetries != 5 || cfg.PollInterval != time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Redis.UpdatesChannel != "board-updates" || cfg.Redis.BoardCacheTTL != 12*time.Hour {
		t.Fatalf("unexpected redis defaults %+v", cfg.Redis)
	}
}

func TestLoadServiceOverrides(t *testing.T) {
	setServiceEnv(t)
	t.Setenv("SAVE_RETRIES", "9")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("BOARD_UPDATES_CHANNEL", "updates")
	cfg, err := LoadService()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SaveRetries != 9 || cfg.PollInterval != 250*time.Millisecond || cfg.Redis.UpdatesChannel != "updates" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadServiceMissing(t *testing.T) {
	setServiceEnv(t)
	t.Setenv("BOARDS_TABLE", "")
	t.Setenv("DOMAIN_EVENTS_QUEUE", "")
	_, err := LoadService()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "BOARDS_TABLE") || !strings.Contains(err.Error(), "DOMAIN_EVENTS_QUEUE") {
		t.Fatalf("error should name missing variables: %v", err)
	}
}

func TestLoadAPIRequiresAuthOutsideTestMode(t *testing.T) {
	setServiceEnv(t)
	t.Setenv("AUTH0_TEST_MODE", "")
	t.Setenv("AUTH0_DOMAIN", "")
	if _, err := LoadAPI(); err == nil || !strings.Contains(err.Error(), "AUTH0_DOMAIN") {
		t.Fatalf("expected auth config error, got %v", err)
	}

	t.Setenv("AUTH0_TEST_MODE", "1")
	t.Setenv("TEST_JWT_SECRET", "")
	if _, err := LoadAPI(); err == nil || !strings.Contains(err.Error(), "TEST_JWT_SECRET") {
		t.Fatalf("test mode needs a shared secret, got %v", err)
	}

	t.Setenv("TEST_JWT_SECRET", "secret")
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")
	cfg, err := LoadAPI()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Auth.TestMode || cfg.ListenAddr != ":7071" || cfg.Auth.JWKSCacheTTL != 15*time.Minute {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestRedisOptions(t *testing.T) {
	opts, err := RedisOptions("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected url options %+v", opts)
	}

	opts, err = RedisOptions("cache.redis.cache.windows.net:6380,password=pw,ssl=True,abortConnect=False")
	if err != nil {
		t.Fatalf("azure form: %v", err)
	}
	if opts.Addr != "cache.redis.cache.windows.net:6380" || opts.Password != "pw" || opts.TLSConfig == nil {
		t.Fatalf("unexpected azure options %+v", opts)
	}

	if _, err := RedisOptions(""); err == nil {
		t.Fatalf("expected error for empty string")
	}
}

func TestLoadStorageIgnoresRedis(t *testing.T) {
	setServiceEnv(t)
	t.Setenv("REDIS_CONNECTION_STRING", "")
	s, err := LoadStorage()
	if err != nil {
		t.Fatalf("load storage: %v", err)
	}
	if s.BoardsTable != "Boards" || s.EventsQueue != "board-events" {
		t.Fatalf("unexpected storage config %+v", s)
	}

	t.Setenv("COMMAND_QUEUE", "")
	if _, err := LoadStorage(); err == nil || !strings.Contains(err.Error(), "COMMAND_QUEUE") {
		t.Fatalf("expected missing COMMAND_QUEUE, got %v", err)
	}
}
