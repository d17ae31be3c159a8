package main

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/memocache/backend/redis"
	"github.com/jonwraymond/memocache/backend/sqlite"
	"github.com/jonwraymond/memocache/cache"
)

// sqliteCleanupInterval is how often the sqlite backend purges expired rows
// while a command runs.
const sqliteCleanupInterval = time.Minute

// openBackend opens the configured backend. The returned close function
// releases it and is never nil.
func openBackend(ctx context.Context, s settings) (cache.Backend, func() error, error) {
	switch s.backend {
	case "redis":
		b, err := redis.Open(s.redisURL, redis.WithPrefix(s.redisPrefix))
		if err != nil {
			return nil, nil, err
		}
		if err := b.Ping(ctx); err != nil {
			_ = b.Close()
			return nil, nil, errors.Wrap(err, "redis backend unreachable")
		}
		return b, b.Close, nil

	case "sqlite":
		b, err := sqlite.Open(sqlite.Config{Path: s.sqlitePath, CleanupInterval: sqliteCleanupInterval})
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil

	default:
		return cache.NewMemoryBackend(), func() error { return nil }, nil
	}
}
