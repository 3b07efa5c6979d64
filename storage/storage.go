// Package storage is the storefront's durable key-value store: the place
// the session token and user record survive restarts.
package storage

import (
	"context"
	"errors"
	"fmt"

	"bakery-storefront/config"
	"bakery-storefront/database"
)

var ErrNotFound = errors.New("key not found")

type Entry struct {
	Key   string
	Value []byte
}

type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes all entries together, atomically where the backend allows.
	Put(ctx context.Context, entries ...Entry) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Open builds the backend selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		db, err := database.OpenSQLite(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return newMigratedSQLStore(ctx, NewSQLStore(db, DialectSQLite))
	case "mysql":
		db, err := database.OpenMySQL(cfg)
		if err != nil {
			return nil, err
		}
		return newMigratedSQLStore(ctx, NewSQLStore(db, DialectMySQL))
	case "redis":
		return OpenRedis(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newMigratedSQLStore(ctx context.Context, s *SQLStore) (Store, error) {
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return s, nil
}
