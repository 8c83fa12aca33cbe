// Package pipeline turns watchlist fragments into an ordered list of pages
// to open, and records those decisions.
//
// The pipeline's job ends at "produce the (entry, target URL) pairs to
// open": driving the local browser is the caller's concern. Scanning and
// URL-rewrite failures abort the run and propagate; history writes are
// logged and never fatal, so a persistence problem cannot block the primary
// decision logic.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/wikiwatch/history"
	"github.com/hazyhaar/wikiwatch/scanner"
	"github.com/hazyhaar/wikiwatch/urlquery"
)

// Config carries the pipeline's explicit configuration. No module-level
// state: construct one per run.
type Config struct {
	// BaseURL is prefixed to each entry's link target, e.g.
	// "https://en.wikipedia.org".
	BaseURL string
	// MaxOpen caps how many unseen entries get opened. Zero opens nothing.
	MaxOpen int
	// DryRun plans the opens but records nothing.
	DryRun bool
}

// Open is one decision to open a page's diff.
type Open struct {
	Entry scanner.Entry
	// TargetURL is the entry's link target rebased on BaseURL with diff=0
	// forced, so the browser always lands on the newest diff.
	TargetURL string
}

// Report counts what one run saw and decided.
type Report struct {
	StartedAt time.Time
	// Fetched is the total number of entries scanned.
	Fetched int
	// Opened is the number of entries turned into Open decisions.
	Opened int
	// SkippedSeen is the number of entries whose latest change was already
	// viewed.
	SkippedSeen int
	// Unopened is the number of unseen entries beyond the MaxOpen cap.
	Unopened int
}

// Pipeline composes the scanner, the query rewriter and the history store.
type Pipeline struct {
	cfg    Config
	store  *history.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Pipeline. The store must be non-nil; use history.Discard
// when the database is unavailable.
func New(cfg Config, store *history.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, store: store, logger: logger, now: time.Now}
}

// Run scans the fragments in order and returns the opens to perform. Every
// scanned entry is recorded as current watch-list membership; every open
// decision is recorded as a page open. The run summary is persisted last.
func (p *Pipeline) Run(ctx context.Context, fragments []string) ([]Open, Report, error) {
	report := Report{StartedAt: p.now()}
	var opens []Open

	for _, fragment := range fragments {
		entries, err := scanner.Scan(fragment)
		if err != nil {
			return nil, report, fmt.Errorf("pipeline: scan: %w", err)
		}
		for _, entry := range entries {
			report.Fetched++
			p.recordMembership(ctx, entry.PageTitle)

			switch {
			case entry.Seen == scanner.SeenWatched:
				report.SkippedSeen++
				p.logger.Info("pipeline: skipped seen page", "page", entry.PageTitle)
			case len(opens) < p.cfg.MaxOpen:
				target, err := urlquery.SetParameter(p.cfg.BaseURL+entry.LinkTarget, "diff", "0")
				if err != nil {
					return nil, report, fmt.Errorf("pipeline: rewrite %q: %w", entry.LinkTarget, err)
				}
				opens = append(opens, Open{Entry: entry, TargetURL: target})
				report.Opened++
				p.recordOpen(ctx, entry.PageTitle)
				p.logger.Info("pipeline: opening page", "page", entry.PageTitle, "url", target)
			default:
				report.Unopened++
			}
		}
	}

	if !p.cfg.DryRun {
		_, err := p.store.RecordRun(ctx, history.RunSummary{
			StartedAt: report.StartedAt,
			Fetched:   report.Fetched,
			Opened:    report.Opened,
			Skipped:   report.SkippedSeen,
		})
		if err != nil {
			p.logger.Warn("pipeline: run summary not recorded", "error", err)
		}
	}

	p.logger.Info("pipeline: run complete",
		"fetched", report.Fetched,
		"opened", report.Opened,
		"skipped_seen", report.SkippedSeen,
		"unopened", report.Unopened)
	return opens, report, nil
}

func (p *Pipeline) recordMembership(ctx context.Context, title string) {
	if p.cfg.DryRun {
		return
	}
	if err := p.store.RecordWatchlistMembership(ctx, title); err != nil {
		p.logger.Warn("pipeline: membership not recorded", "page", title, "error", err)
	}
}

func (p *Pipeline) recordOpen(ctx context.Context, title string) {
	if p.cfg.DryRun {
		return
	}
	if err := p.store.RecordPageOpen(ctx, title); err != nil {
		p.logger.Warn("pipeline: page open not recorded", "page", title, "error", err)
	}
}
