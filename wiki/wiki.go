// Package wiki drives a MediaWiki site through headless Chrome: sign-in and
// watchlist retrieval. It is the external collaborator in front of the
// deterministic core — everything here is browser orchestration, nothing is
// parsed or persisted.
package wiki

import (
	"log/slog"
	"time"
)

// Config configures a Session.
type Config struct {
	// BaseURL of the wiki, e.g. "https://en.wikipedia.org".
	BaseURL string

	// LoginPath and WatchlistPath are appended to BaseURL.
	// Defaults: Special:UserLogin and Special:Watchlist.
	LoginPath     string
	WatchlistPath string

	// Selector locates the change-list containers on the watchlist page.
	// Default: ".mw-changeslist ul".
	Selector string

	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headful disables headless mode, for debugging login problems.
	Headful bool

	// NavTimeout bounds each navigation and element wait. Default: 30s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.LoginPath == "" {
		c.LoginPath = "/wiki/Special:UserLogin"
	}
	if c.WatchlistPath == "" {
		c.WatchlistPath = "/wiki/Special:Watchlist"
	}
	if c.Selector == "" {
		c.Selector = ".mw-changeslist ul"
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Credentials for the MediaWiki login form.
type Credentials struct {
	Username string
	Password string
}

// MediaWiki login form element IDs.
const (
	selUsername    = "#wpName1"
	selPassword    = "#wpPassword1"
	selLoginButton = "#wpLoginAttempt"
)
