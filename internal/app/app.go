package app

import (
	"fmt"
	"time"

	"bookbazaar/pkg/store"
	"bookbazaar/pkg/stream"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
	JWTSecret     string
	JWTIssuer     string
	JWTAudience   string

	// Injectable for tests; built from the settings above when nil.
	Store    store.Store
	Sessions store.SessionStore
	Bus      stream.Bus
}

// App is the core application service wiring storage, sessions, and the
// message bus behind the marketplace operations.
type App struct {
	store    store.Store
	sessions store.SessionStore
	bus      stream.Bus
}

// New constructs the application with database-backed storage by default.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessions := cfg.Sessions
	if sessions == nil {
		var revoker store.TokenRevoker
		if cfg.RedisAddr != "" {
			revoker = store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
		} else {
			revoker = store.NewMemoryTokenRevoker()
		}
		var err error
		sessions, err = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL, revoker, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
	}

	bus := cfg.Bus
	if bus == nil {
		if cfg.RedisAddr != "" {
			bus = stream.NewRedisBus(cfg.RedisAddr, cfg.RedisPassword)
		} else {
			bus = stream.NewMemoryBus()
		}
	}

	return &App{
		store:    dataStore,
		sessions: sessions,
		bus:      bus,
	}, nil
}
