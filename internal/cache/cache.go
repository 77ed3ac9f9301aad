// Package cache provides the shared lookup cache used for stable upstream
// answers (reverse geocoding, district codes). Values are opaque bytes.
package cache

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Store is a key/value cache with per-entry expiry.
// Get reports a miss as (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Backend names accepted by New
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// DefaultTTL applies when no positive TTL is configured
const DefaultTTL = 24 * time.Hour

// Config selects and configures a backend
type Config struct {
	Backend       string
	DefaultTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
}

// ErrUnknownBackend is returned by New for an unsupported backend name
type ErrUnknownBackend struct {
	Backend string
}

func (e *ErrUnknownBackend) Error() string {
	return fmt.Sprintf("unknown cache backend: %q", e.Backend)
}

// New opens the configured backend
func New(ctx context.Context, cfg Config) (Store, error) {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	log.Printf("[CACHE] Opening backend=%s ttl=%v", cfg.Backend, ttl)

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(ttl), nil
	case BackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			p, err := DefaultSQLitePath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return NewSQLiteStore(path)
	case BackendNone:
		return NopStore{}, nil
	default:
		return nil, &ErrUnknownBackend{Backend: cfg.Backend}
	}
}

// NopStore never stores anything
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopStore) Close() error { return nil }
