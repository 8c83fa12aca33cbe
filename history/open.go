// Package history records page-open history and watch-list membership in an
// embedded SQLite database.
//
// Open applies the production-safe pragmas and the schema on every call, so
// a missing or empty database file heals itself. Writes are keyed by page
// name; page rows are created lazily and nothing is ever deleted.
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	store, err := history.Open("wikiwatch.db", history.WithMkdirAll())
//
// In tests:
//
//	store := history.OpenMemory(t)
package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type config struct {
	busyTimeout int
	synchronous string
	mkdirAll    bool
	ping        bool

	policy ConflictPolicy
	clock  func() time.Time
	logger *slog.Logger
}

func defaults() config {
	return config{
		busyTimeout: 10_000,
		synchronous: "NORMAL",
		ping:        true,
		policy:      ConflictIgnore,
		clock:       time.Now,
	}
}

// Option customises Open behaviour.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithSynchronous sets PRAGMA synchronous. Default: "NORMAL".
func WithSynchronous(mode string) Option { return func(c *config) { c.synchronous = mode } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// WithoutPing skips the db.Ping() verification after opening.
func WithoutPing() Option { return func(c *config) { c.ping = false } }

// WithConflictPolicy sets how duplicate (name, opened_at) page-open keys are
// handled. Default: ConflictIgnore.
func WithConflictPolicy(p ConflictPolicy) Option { return func(c *config) { c.policy = p } }

// WithClock overrides the timestamp source. Timestamps are serialised as
// offset-aware ISO-8601 strings.
func WithClock(clock func() time.Time) Option { return func(c *config) { c.clock = clock } }

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// Open opens the history database at path, applying pragmas and creating
// any missing tables. The caller must blank-import modernc.org/sqlite.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.synchronous),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}

	// Self-healing: the schema is applied on every open, not only the first.
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: exec schema: %w", err)
	}

	if cfg.ping {
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: ping: %w", err)
		}
	}

	return &Store{
		db:     db,
		policy: cfg.policy,
		clock:  cfg.clock,
		logger: cfg.logger,
	}, nil
}

// OpenMemory opens an in-memory history store for testing. MaxOpenConns is
// pinned to 1 so every query hits the same in-memory database. The store is
// closed automatically via t.Cleanup.
func OpenMemory(t testing.TB, opts ...Option) *Store {
	t.Helper()
	s, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("history.OpenMemory: %v", err)
	}
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}
