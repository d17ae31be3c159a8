// Package redis provides a cache.Backend stored in Redis.
//
// Values are written with SET PX, so Redis expires entries on its own and a
// Get after expiry is a plain miss. The caller owns the client lifecycle.
package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jonwraymond/memocache/cache"
)

// DefaultQueryTimeout bounds each Redis round trip.
const DefaultQueryTimeout = 5 * time.Second

type config struct {
	prefix       string
	queryTimeout time.Duration
}

// Option configures a Backend.
type Option func(*config)

// WithPrefix namespaces every key as "<prefix>:<key>".
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithQueryTimeout sets the per-command timeout. Zero or negative values
// disable it and rely on the caller's context alone.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) {
		c.queryTimeout = d
	}
}

// Backend implements cache.Backend on a go-redis client.
type Backend struct {
	client goredis.UniversalClient
	cfg    config
}

var _ cache.Backend = (*Backend)(nil)

// New returns a Backend using client.
func New(client goredis.UniversalClient, opts ...Option) (*Backend, error) {
	if client == nil {
		return nil, errors.New("redis: client is nil")
	}
	cfg := config{queryTimeout: DefaultQueryTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Backend{client: client, cfg: cfg}, nil
}

// Open parses a redis:// URL and returns a Backend that owns its client.
// Close releases it.
func Open(url string, opts ...Option) (*Backend, error) {
	o, err := goredis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrapf(err, "redis: parse url")
	}
	return New(goredis.NewClient(o), opts...)
}

func (b *Backend) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if b.cfg.queryTimeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, b.cfg.queryTimeout)
}

func (b *Backend) prefixKey(key string) string {
	if b.cfg.prefix == "" {
		return key
	}
	return b.cfg.prefix + ":" + key
}

// Get returns the stored bytes. A missing or expired key is (nil, false, nil).
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, false, err
	}
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	data, err := b.client.Get(qctx, b.prefixKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	return b.client.Set(qctx, b.prefixKey(key), value, ttl).Err()
}

// Delete removes key. It reports whether an entry existed.
func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	n, err := b.client.Del(qctx, b.prefixKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of key, or false when it does not exist.
func (b *Backend) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	d, err := b.client.PTTL(qctx, b.prefixKey(key)).Result()
	if err != nil {
		return 0, false, err
	}
	// go-redis passes PTTL's -2 (missing) and -1 (no expiry) through as
	// raw durations.
	switch {
	case d == -2:
		return 0, false, nil
	case d < 0:
		return 0, true, nil
	}
	return d, true, nil
}

// Ping checks connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()
	return b.client.Ping(qctx).Err()
}

// Close closes the underlying client, including one passed to New.
func (b *Backend) Close() error {
	return b.client.Close()
}
