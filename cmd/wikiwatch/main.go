// Command wikiwatch signs in to a MediaWiki site, scans the watchlist, and
// opens the most recent unseen change per watched page in the local browser,
// recording every decision in an SQLite history database.
//
// Usage:
//
//	wikiwatch -count 5                       # open up to 5 unseen pages
//	wikiwatch -count 5 -config wikiwatch.yaml
//	wikiwatch -count 3 -schedule "0 * * * *" # daemon mode, hourly
//	wikiwatch -count 5 -dry-run              # decide, but open and record nothing
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/wikiwatch/config"
	"github.com/hazyhaar/wikiwatch/history"
	"github.com/hazyhaar/wikiwatch/openurl"
	"github.com/hazyhaar/wikiwatch/pipeline"
	"github.com/hazyhaar/wikiwatch/wiki"
)

func main() {
	configPath := flag.String("config", "", "path to wikiwatch.yaml config file")
	count := flag.Int("count", 0, "maximum number of unseen pages to open")
	dbPath := flag.String("db", "", "history database path (overrides config)")
	schedule := flag.String("schedule", "", "cron expression for daemon mode (overrides config)")
	dryRun := flag.Bool("dry-run", false, "decide what to open, but open and record nothing")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		configPath: *configPath,
		count:      *count,
		dbPath:     *dbPath,
		schedule:   *schedule,
		dryRun:     *dryRun,
	}); err != nil {
		logger.Error("wikiwatch: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	count      int
	dbPath     string
	schedule   string
	dryRun     bool
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	// .env is optional; it only feeds the WIKIWATCH_* overrides.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("wikiwatch: .env not loaded", "error", err)
	}

	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadFile(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.count > 0 {
		cfg.MaxOpen = opts.count
	}
	if opts.dbPath != "" {
		cfg.Database = opts.dbPath
	}
	if opts.schedule != "" {
		cfg.Schedule = opts.schedule
	}
	if cfg.MaxOpen <= 0 {
		return fmt.Errorf("wikiwatch: -count (or max_open) must be positive")
	}

	creds, err := cfg.ReadCredentials()
	if err != nil {
		return err
	}

	if cfg.Schedule == "" {
		return runOnce(ctx, logger, cfg, creds, opts.dryRun)
	}
	return runScheduled(ctx, logger, cfg, creds, opts.dryRun)
}

// runScheduled runs the pipeline immediately, then on every cron tick until
// the context is cancelled. A failed run is logged and does not stop the
// daemon.
func runScheduled(ctx context.Context, logger *slog.Logger, cfg *config.Config, creds config.Credentials, dryRun bool) error {
	if err := runOnce(ctx, logger, cfg, creds, dryRun); err != nil {
		logger.Error("wikiwatch: run failed", "error", err)
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.Schedule, func() {
		if err := runOnce(ctx, logger, cfg, creds, dryRun); err != nil {
			logger.Error("wikiwatch: scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("wikiwatch: bad schedule %q: %w", cfg.Schedule, err)
	}

	logger.Info("wikiwatch: scheduler started", "schedule", cfg.Schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("wikiwatch: scheduler stopped")
	return nil
}

// runOnce performs one full cycle: open the store, sign in, fetch the
// watchlist, decide, open. The store is scoped to the run and released on
// every exit path.
func runOnce(ctx context.Context, logger *slog.Logger, cfg *config.Config, creds config.Credentials, dryRun bool) error {
	policy, err := history.ParseConflictPolicy(cfg.ConflictPolicy)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.Database,
		history.WithMkdirAll(),
		history.WithConflictPolicy(policy),
		history.WithLogger(logger))
	if err != nil {
		// Degraded mode: keep deciding, stop recording.
		logger.Warn("wikiwatch: history unavailable, running without persistence", "error", err)
		store = history.Discard(logger)
	}
	defer store.Close()

	session, err := wiki.Start(wiki.Config{
		BaseURL:    cfg.BaseURL,
		RemoteURL:  cfg.Browser.Remote,
		Headful:    cfg.Browser.Headful,
		NavTimeout: cfg.Browser.NavTimeout,
		Selector:   cfg.Browser.WatchlistSelector,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Login(ctx, wiki.Credentials{
		Username: creds.Username,
		Password: creds.Password,
	}); err != nil {
		return err
	}

	fragments, err := session.WatchlistHTML(ctx)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Config{
		BaseURL: cfg.BaseURL,
		MaxOpen: cfg.MaxOpen,
		DryRun:  dryRun,
	}, store, logger)

	opens, report, err := p.Run(ctx, fragments)
	if err != nil {
		return err
	}

	for _, o := range opens {
		if dryRun {
			logger.Info("wikiwatch: would open", "page", o.Entry.PageTitle, "url", o.TargetURL)
			continue
		}
		if err := openurl.Open(o.TargetURL); err != nil {
			logger.Error("wikiwatch: browser open failed", "page", o.Entry.PageTitle, "error", err)
		}
	}

	logger.Info("wikiwatch: done",
		"fetched", report.Fetched,
		"opened", report.Opened,
		"skipped_seen", report.SkippedSeen,
		"unopened", report.Unopened,
		"dry_run", dryRun)
	return nil
}
