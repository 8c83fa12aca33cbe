package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// tickingClock returns a clock that advances one second per call, so every
// timestamp is unique unless a test wants otherwise.
func tickingClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestSchemaSelfHealing(t *testing.T) {
	// Opening an empty database creates every table; the second Exec of the
	// schema on an already-initialised database is a no-op.
	s := OpenMemory(t)
	for _, table := range []string{"page", "page_open", "watchlist_page", "run"} {
		var name string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
	if _, err := s.db.Exec(Schema); err != nil {
		t.Errorf("re-applying schema: %v", err)
	}
}

func TestRecordPageOpenAppendsLog(t *testing.T) {
	s := OpenMemory(t, WithClock(tickingClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	for range 3 {
		if err := s.RecordPageOpen(ctx, "Earth"); err != nil {
			t.Fatalf("record open: %v", err)
		}
	}

	n, err := s.OpenCount(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("open count: got %d, want 3", n)
	}

	// The page row is created lazily, exactly once.
	var pages int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM page`).Scan(&pages); err != nil {
		t.Fatalf("count pages: %v", err)
	}
	if pages != 1 {
		t.Errorf("page rows: got %d, want 1", pages)
	}
}

func TestLastOpen(t *testing.T) {
	s := OpenMemory(t, WithClock(tickingClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	if _, ok, err := s.LastOpen(ctx, "Earth"); err != nil || ok {
		t.Fatalf("never-opened page: ok=%v err=%v", ok, err)
	}

	s.RecordPageOpen(ctx, "Earth")
	s.RecordPageOpen(ctx, "Earth")

	ts, ok, err := s.LastOpen(ctx, "Earth")
	if err != nil || !ok {
		t.Fatalf("last open: ok=%v err=%v", ok, err)
	}
	if ts != "2026-03-01T12:00:02Z" {
		t.Errorf("last open timestamp: %q", ts)
	}
}

func TestMembershipUpsert(t *testing.T) {
	// Recording membership twice for one page leaves exactly one row with
	// the later timestamp.
	s := OpenMemory(t, WithClock(tickingClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	if err := s.RecordWatchlistMembership(ctx, "Foo"); err != nil {
		t.Fatalf("first membership: %v", err)
	}
	if err := s.RecordWatchlistMembership(ctx, "Foo"); err != nil {
		t.Fatalf("second membership: %v", err)
	}

	n, err := s.WatchlistSize(ctx)
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if n != 1 {
		t.Errorf("watchlist size: got %d, want 1", n)
	}

	ts, ok, err := s.MembershipTimestamp(ctx, "Foo")
	if err != nil || !ok {
		t.Fatalf("timestamp: ok=%v err=%v", ok, err)
	}
	if ts != "2026-03-01T12:00:02Z" {
		t.Errorf("timestamp not overwritten: %q", ts)
	}
}

func TestConflictPolicies(t *testing.T) {
	// A frozen clock makes every open collide on (name, opened_at).
	frozen := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	t.Run("ignore", func(t *testing.T) {
		s := OpenMemory(t, WithClock(frozen))
		ctx := context.Background()
		if err := s.RecordPageOpen(ctx, "Earth"); err != nil {
			t.Fatalf("first open: %v", err)
		}
		if err := s.RecordPageOpen(ctx, "Earth"); err != nil {
			t.Fatalf("ignore policy must swallow the duplicate: %v", err)
		}
		if n, _ := s.OpenCount(ctx); n != 1 {
			t.Errorf("open count: got %d, want 1", n)
		}
	})

	t.Run("reject", func(t *testing.T) {
		s := OpenMemory(t, WithClock(frozen), WithConflictPolicy(ConflictReject))
		ctx := context.Background()
		if err := s.RecordPageOpen(ctx, "Earth"); err != nil {
			t.Fatalf("first open: %v", err)
		}
		if err := s.RecordPageOpen(ctx, "Earth"); err == nil {
			t.Error("reject policy must surface the duplicate")
		}
		if n, _ := s.OpenCount(ctx); n != 1 {
			t.Errorf("open count: got %d, want 1", n)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		s := OpenMemory(t, WithClock(frozen), WithConflictPolicy(ConflictOverwrite))
		ctx := context.Background()
		if err := s.RecordPageOpen(ctx, "Earth"); err != nil {
			t.Fatalf("first open: %v", err)
		}
		if err := s.RecordPageOpen(ctx, "Earth"); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		if n, _ := s.OpenCount(ctx); n != 1 {
			t.Errorf("open count: got %d, want 1", n)
		}
	})
}

func TestParseConflictPolicy(t *testing.T) {
	cases := []struct {
		in      string
		want    ConflictPolicy
		wantErr bool
	}{
		{"", ConflictIgnore, false},
		{"ignore", ConflictIgnore, false},
		{"reject", ConflictReject, false},
		{"overwrite", ConflictOverwrite, false},
		{"merge", ConflictIgnore, true},
	}
	for _, tc := range cases {
		got, err := ParseConflictPolicy(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("%q: err=%v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRecordRun(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	id, err := s.RecordRun(ctx, RunSummary{
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Fetched:   10,
		Opened:    3,
		Skipped:   7,
	})
	if err != nil {
		t.Fatalf("record run: %v", err)
	}
	if id == "" {
		t.Fatal("empty run ID")
	}

	var fetched, opened int
	err = s.db.QueryRow(`SELECT fetched, opened FROM run WHERE id = ?`, id).Scan(&fetched, &opened)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if fetched != 10 || opened != 3 {
		t.Errorf("counters: fetched=%d opened=%d", fetched, opened)
	}
}

func TestDiscardStoreDegradesQuietly(t *testing.T) {
	// Writes on a discarded store log and no-op; reads report unavailability.
	s := Discard(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	if err := s.RecordPageOpen(ctx, "Earth"); err != nil {
		t.Errorf("write must no-op: %v", err)
	}
	if err := s.RecordWatchlistMembership(ctx, "Earth"); err != nil {
		t.Errorf("write must no-op: %v", err)
	}
	if _, err := s.RecordRun(ctx, RunSummary{}); err != nil {
		t.Errorf("write must no-op: %v", err)
	}
	if _, err := s.OpenCount(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("read: want ErrUnavailable, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestTimestampsCarryOffset(t *testing.T) {
	// The ISO-8601 serialisation keeps the clock's UTC offset.
	loc := time.FixedZone("UTC+2", 2*60*60)
	clock := func() time.Time { return time.Date(2026, 3, 1, 14, 30, 0, 0, loc) }
	s := OpenMemory(t, WithClock(clock))
	ctx := context.Background()

	s.RecordPageOpen(ctx, "Earth")
	ts, ok, err := s.LastOpen(ctx, "Earth")
	if err != nil || !ok {
		t.Fatalf("last open: ok=%v err=%v", ok, err)
	}
	if ts != "2026-03-01T14:30:00+02:00" {
		t.Errorf("timestamp: %q", ts)
	}
}
