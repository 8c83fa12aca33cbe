package history

// Schema creates the history tables. Applied on every open; everything is
// IF NOT EXISTS so an existing database passes through untouched.
const Schema = `
-- Pages ever seen in a watchlist snapshot or opened
CREATE TABLE IF NOT EXISTS page (
    name TEXT PRIMARY KEY
);

-- Append-only log of decisions to open a page's diff
CREATE TABLE IF NOT EXISTS page_open (
    name      TEXT NOT NULL REFERENCES page(name),
    opened_at TEXT NOT NULL,
    PRIMARY KEY (name, opened_at)
);
CREATE INDEX IF NOT EXISTS idx_page_open_name_date ON page_open(name, opened_at);

-- Current watch-list membership, one row per page
CREATE TABLE IF NOT EXISTS watchlist_page (
    name         TEXT PRIMARY KEY REFERENCES page(name),
    last_seen_at TEXT NOT NULL
);

-- One row per pipeline run (reporting)
CREATE TABLE IF NOT EXISTS run (
    id         TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    fetched    INTEGER NOT NULL DEFAULT 0,
    opened     INTEGER NOT NULL DEFAULT 0,
    skipped    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_run_started ON run(started_at DESC);
`
