package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrUnavailable is returned by read operations on a discarded store.
// Write operations never return it: they log and become no-ops so that a
// persistence problem cannot block the decision pipeline.
var ErrUnavailable = errors.New("history: store unavailable")

// ConflictPolicy decides what happens when a page open is recorded with a
// (name, opened_at) key that already exists. This is possible when two opens
// for the same page land within the clock's resolution.
type ConflictPolicy int

const (
	// ConflictIgnore keeps the existing row and drops the new one. Default.
	ConflictIgnore ConflictPolicy = iota
	// ConflictReject surfaces the constraint violation to the caller.
	ConflictReject
	// ConflictOverwrite replaces the existing row.
	ConflictOverwrite
)

func (p ConflictPolicy) String() string {
	switch p {
	case ConflictReject:
		return "reject"
	case ConflictOverwrite:
		return "overwrite"
	default:
		return "ignore"
	}
}

// ParseConflictPolicy maps a configuration string to a ConflictPolicy.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch s {
	case "", "ignore":
		return ConflictIgnore, nil
	case "reject":
		return ConflictReject, nil
	case "overwrite":
		return ConflictOverwrite, nil
	default:
		return ConflictIgnore, fmt.Errorf("history: unknown conflict policy %q", s)
	}
}

// Store records page opens and watch-list membership. Obtain one from Open,
// OpenMemory, or Discard. Methods are not safe for concurrent use; the
// pipeline runs single-threaded against one store per run.
type Store struct {
	db     *sql.DB
	policy ConflictPolicy
	clock  func() time.Time
	logger *slog.Logger
}

// Discard returns a store whose writes log and do nothing, for use when the
// real database could not be opened. Durability degrades; the pipeline's
// primary job — deciding what to open — keeps working.
func Discard(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

// Close releases the database. Safe on a discarded store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordPageOpen upserts the page row and appends one page_open row with the
// current timestamp. Duplicate (name, opened_at) keys are handled per the
// store's ConflictPolicy.
func (s *Store) RecordPageOpen(ctx context.Context, title string) error {
	if s.db == nil {
		s.logger.Warn("history: store unavailable, page open not recorded", "page", title)
		return nil
	}
	ts := s.now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	if err := upsertPage(ctx, tx, title); err != nil {
		return err
	}

	var stmt string
	switch s.policy {
	case ConflictReject:
		stmt = `INSERT INTO page_open (name, opened_at) VALUES (?, ?)`
	case ConflictOverwrite:
		stmt = `INSERT OR REPLACE INTO page_open (name, opened_at) VALUES (?, ?)`
	default:
		stmt = `INSERT OR IGNORE INTO page_open (name, opened_at) VALUES (?, ?)`
	}
	if _, err := tx.ExecContext(ctx, stmt, title, ts); err != nil {
		return fmt.Errorf("history: record open %q: %w", title, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// RecordWatchlistMembership upserts the page row and marks the page as
// currently on the watch list, overwriting any earlier timestamp.
func (s *Store) RecordWatchlistMembership(ctx context.Context, title string) error {
	if s.db == nil {
		s.logger.Warn("history: store unavailable, membership not recorded", "page", title)
		return nil
	}
	ts := s.now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	if err := upsertPage(ctx, tx, title); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO watchlist_page (name, last_seen_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET last_seen_at = excluded.last_seen_at`,
		title, ts)
	if err != nil {
		return fmt.Errorf("history: record membership %q: %w", title, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// RunSummary is the per-run counter set persisted for reporting.
type RunSummary struct {
	StartedAt time.Time
	Fetched   int
	Opened    int
	Skipped   int
}

// RecordRun persists one pipeline run summary and returns its generated ID.
func (s *Store) RecordRun(ctx context.Context, sum RunSummary) (string, error) {
	if s.db == nil {
		s.logger.Warn("history: store unavailable, run not recorded")
		return "", nil
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run (id, started_at, fetched, opened, skipped) VALUES (?, ?, ?, ?, ?)`,
		id, sum.StartedAt.Format(time.RFC3339), sum.Fetched, sum.Opened, sum.Skipped)
	if err != nil {
		return "", fmt.Errorf("history: record run: %w", err)
	}
	return id, nil
}

// OpenCount returns the total number of recorded page opens.
func (s *Store) OpenCount(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrUnavailable
	}
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_open`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("history: open count: %w", err)
	}
	return n, nil
}

// WatchlistSize returns the number of pages currently on the watch list.
func (s *Store) WatchlistSize(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrUnavailable
	}
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watchlist_page`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("history: watchlist size: %w", err)
	}
	return n, nil
}

// LastOpen returns the most recent recorded open timestamp for a page.
// ok is false when the page has never been opened.
func (s *Store) LastOpen(ctx context.Context, title string) (ts string, ok bool, err error) {
	if s.db == nil {
		return "", false, ErrUnavailable
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT opened_at FROM page_open WHERE name = ? ORDER BY opened_at DESC LIMIT 1`,
		title).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("history: last open %q: %w", title, err)
	}
	return ts, true, nil
}

// MembershipTimestamp returns the last-seen timestamp of a watch-list page.
// ok is false when the page is not on the watch list.
func (s *Store) MembershipTimestamp(ctx context.Context, title string) (ts string, ok bool, err error) {
	if s.db == nil {
		return "", false, ErrUnavailable
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT last_seen_at FROM watchlist_page WHERE name = ?`, title).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("history: membership %q: %w", title, err)
	}
	return ts, true, nil
}

// now serialises the clock as an offset-aware ISO-8601 string. String
// ordering matches time ordering within one UTC offset.
func (s *Store) now() string {
	clock := s.clock
	if clock == nil {
		clock = time.Now
	}
	return clock().Format(time.RFC3339)
}

func upsertPage(ctx context.Context, tx *sql.Tx, title string) error {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO page (name) VALUES (?)`, title); err != nil {
		return fmt.Errorf("history: upsert page %q: %w", title, err)
	}
	return nil
}
