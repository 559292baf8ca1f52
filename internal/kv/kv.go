// Package kv provides the key-value backends that hold persisted chat configuration.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}

type Options struct {
	Driver string
	// DSN is the database DSN for sqlite/postgres.
	DSN string
	// Dir is the directory for the file driver.
	Dir   string
	Redis *redis.Options
	// RedisPrefix is prepended to every key in the redis driver.
	RedisPrefix string
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch normalizeDriver(opts.Driver) {
	case "file", "":
		return NewFileStore(opts.Dir)
	case "redis":
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis options are required for redis driver")
		}
		rdb := redis.NewClient(opts.Redis)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisStore(rdb, opts.RedisPrefix), nil
	case "postgres", "sqlite":
		return OpenSQL(ctx, opts.Driver, opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}
}

func normalizeDriver(driver string) string {
	d := strings.ToLower(strings.TrimSpace(driver))
	switch d {
	case "postgres", "pgx":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return d
	}
}
