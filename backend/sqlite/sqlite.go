// Package sqlite provides a persistent cache.Backend stored in a SQLite
// database.
//
// Entries carry an absolute expiry. Expired rows are treated as misses on
// read and removed lazily, or in bulk by Purge and the optional cleanup loop.
package sqlite

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jonwraymond/memocache/cache"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
`

// Config configures a Backend.
type Config struct {
	// Path is the database file, or MemoryPath.
	Path string

	// CleanupInterval enables a background purge of expired rows.
	// Zero disables it.
	CleanupInterval time.Duration
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("sqlite: path is required")
	}
	if c.CleanupInterval < 0 {
		return errors.New("sqlite: cleanup interval must be >= 0")
	}
	return nil
}

// Backend implements cache.Backend on SQLite.
type Backend struct {
	db  *sql.DB
	now func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

var _ cache.Backend = (*Backend)(nil)

// Open opens or creates the database and its schema.
func Open(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: open database")
	}
	if cfg.Path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite: ping database")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite: migrate")
	}

	b := &Backend{db: db, now: time.Now}
	if cfg.CleanupInterval > 0 {
		b.stop = make(chan struct{})
		b.done = make(chan struct{})
		go b.cleanupLoop(cfg.CleanupInterval)
	}
	return b, nil
}

// Get returns the stored bytes. A missing or expired key is (nil, false, nil).
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, false, err
	}

	var (
		value     []byte
		expiresAt int64
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if b.now().UnixNano() >= expiresAt {
		// Only drop the row we read; a concurrent Set may have replaced it.
		_, _ = b.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE key = ? AND expires_at = ?`, key, expiresAt)
		return nil, false, nil
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Set stores value under key for ttl, replacing any existing entry.
// A non-positive ttl stores nothing.
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	if value == nil {
		value = []byte{}
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, b.now().Add(ttl).UnixNano())
	return err
}

// Delete removes key. It reports whether an entry existed.
func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Purge deletes every expired row and returns how many were removed.
func (b *Backend) Purge(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= ?`, b.now().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Len returns the number of stored rows, expired or not.
func (b *Backend) Len(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n)
	return n, err
}

// Ping checks that the database is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close stops the cleanup loop and closes the database.
func (b *Backend) Close() error {
	b.once.Do(func() {
		if b.stop != nil {
			close(b.stop)
			<-b.done
		}
	})
	return b.db.Close()
}

func (b *Backend) cleanupLoop(interval time.Duration) {
	defer close(b.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			_, _ = b.Purge(context.Background())
		}
	}
}
