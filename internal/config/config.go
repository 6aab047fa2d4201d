// Package config reads service configuration from the environment.
package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage holds Azure Storage settings shared by both binaries.
type Storage struct {
	ConnectionString string
	BoardsTable      string
	CommandQueue     string
	EventsQueue      string
}

// Redis holds cache and notification settings.
type Redis struct {
	ConnectionString string
	UpdatesChannel   string
	BoardCacheTTL    time.Duration
}

// Auth holds JWT validation settings.
type Auth struct {
	Domain       string
	Audience     string
	TestMode     bool
	TestSecret   string
	JWKSCacheTTL time.Duration
}

// API configures cmd/board-api.
type API struct {
	Storage Storage
	Redis   Redis
	Auth    Auth

	ListenAddr     string
	DeduperTTL     time.Duration
	EnqueueWorkers int
	EnqueueBuffer  int
	EnqueueTimeout time.Duration
	HandoffTimeout time.Duration
}

// Service configures cmd/board-service.
type Service struct {
	Storage Storage
	Redis   Redis

	SaveRetries  int
	PollInterval time.Duration
}

// Debug reports whether DEBUG is set to a true value.
func Debug() bool {
	dbg, err := strconv.ParseBool(os.Getenv("DEBUG"))
	return err == nil && dbg
}

// LoadAPI reads the API configuration.
func LoadAPI() (API, error) {
	var missing []string
	cfg := API{
		Storage: loadStorage(&missing, false),
		Redis:   loadRedis(&missing),
		Auth: Auth{
			Domain:       os.Getenv("AUTH0_DOMAIN"),
			Audience:     os.Getenv("AUTH0_AUDIENCE"),
			TestMode:     os.Getenv("AUTH0_TEST_MODE") == "1",
			TestSecret:   os.Getenv("TEST_JWT_SECRET"),
			JWKSCacheTTL: envDur("JWKS_CACHE_TTL", 15*time.Minute),
		},
		ListenAddr:     ":" + envString("FUNCTIONS_CUSTOMHANDLER_PORT", "8080"),
		DeduperTTL:     envDur("DEDUPER_TTL", 24*time.Hour),
		EnqueueWorkers: envInt("ENQUEUE_WORKERS", 16),
		EnqueueBuffer:  envInt("ENQUEUE_BUFFER", 1024),
		EnqueueTimeout: envDur("ENQUEUE_TIMEOUT", 30*time.Second),
		HandoffTimeout: envDur("ENQUEUE_HANDOFF_TIMEOUT", 15*time.Millisecond),
	}
	switch {
	case cfg.Auth.TestMode && cfg.Auth.TestSecret == "":
		missing = append(missing, "TEST_JWT_SECRET")
	case !cfg.Auth.TestMode && (cfg.Auth.Domain == "" || cfg.Auth.Audience == ""):
		missing = append(missing, "AUTH0_DOMAIN/AUTH0_AUDIENCE")
	}
	if cfg.DeduperTTL <= 0 {
		return API{}, fmt.Errorf("invalid DEDUPER_TTL")
	}
	if len(missing) > 0 {
		return API{}, missingError(missing)
	}
	return cfg, nil
}

// LoadService reads the board service configuration.
func LoadService() (Service, error) {
	var missing []string
	cfg := Service{
		Storage:      loadStorage(&missing, true),
		Redis:        loadRedis(&missing),
		SaveRetries:  envInt("SAVE_RETRIES", 5),
		PollInterval: envDur("POLL_INTERVAL", time.Second),
	}
	if cfg.SaveRetries <= 0 {
		cfg.SaveRetries = 1
	}
	if len(missing) > 0 {
		return Service{}, missingError(missing)
	}
	return cfg, nil
}

// LoadStorage reads the storage settings alone, for provisioning.
func LoadStorage() (Storage, error) {
	var missing []string
	s := loadStorage(&missing, true)
	if len(missing) > 0 {
		return Storage{}, missingError(missing)
	}
	return s, nil
}

func loadStorage(missing *[]string, needEvents bool) Storage {
	s := Storage{
		ConnectionString: os.Getenv("STORAGE_CONNECTION_STRING"),
		BoardsTable:      os.Getenv("BOARDS_TABLE"),
		CommandQueue:     os.Getenv("COMMAND_QUEUE"),
		EventsQueue:      os.Getenv("DOMAIN_EVENTS_QUEUE"),
	}
	required(missing, "STORAGE_CONNECTION_STRING", s.ConnectionString)
	required(missing, "BOARDS_TABLE", s.BoardsTable)
	required(missing, "COMMAND_QUEUE", s.CommandQueue)
	if needEvents {
		required(missing, "DOMAIN_EVENTS_QUEUE", s.EventsQueue)
	}
	return s
}

func loadRedis(missing *[]string) Redis {
	r := Redis{
		ConnectionString: os.Getenv("REDIS_CONNECTION_STRING"),
		UpdatesChannel:   envString("BOARD_UPDATES_CHANNEL", "board-updates"),
		BoardCacheTTL:    envDur("BOARD_CACHE_TTL", 12*time.Hour),
	}
	required(missing, "REDIS_CONNECTION_STRING", r.ConnectionString)
	return r
}

// RedisOptions accepts a redis:// URL or the Azure
// "host:port,password=...,ssl=true" form.
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, fmt.Errorf("empty redis connection string")
	}
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(strings.TrimSpace(kv[1]), "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts, nil
}

func required(missing *[]string, name, value string) {
	if value == "" {
		*missing = append(*missing, name)
	}
}

func missingError(names []string) error {
	return fmt.Errorf("missing config: %s", strings.Join(names, ", "))
}

func envString(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
