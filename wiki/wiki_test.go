package wiki

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{BaseURL: "https://en.wikipedia.org"}
	cfg.defaults()

	if cfg.LoginPath != "/wiki/Special:UserLogin" {
		t.Errorf("login path: %q", cfg.LoginPath)
	}
	if cfg.WatchlistPath != "/wiki/Special:Watchlist" {
		t.Errorf("watchlist path: %q", cfg.WatchlistPath)
	}
	if cfg.Selector != ".mw-changeslist ul" {
		t.Errorf("selector: %q", cfg.Selector)
	}
	if cfg.NavTimeout != 30*time.Second {
		t.Errorf("nav timeout: %v", cfg.NavTimeout)
	}
	if cfg.Logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestConfigDefaultsKeepOverrides(t *testing.T) {
	cfg := Config{
		BaseURL:    "https://wiki.example.org",
		LoginPath:  "/index.php?title=Special:UserLogin",
		Selector:   "#content ul.special",
		NavTimeout: 5 * time.Second,
	}
	cfg.defaults()

	if cfg.LoginPath != "/index.php?title=Special:UserLogin" {
		t.Errorf("login path overridden: %q", cfg.LoginPath)
	}
	if cfg.Selector != "#content ul.special" {
		t.Errorf("selector overridden: %q", cfg.Selector)
	}
	if cfg.NavTimeout != 5*time.Second {
		t.Errorf("nav timeout overridden: %v", cfg.NavTimeout)
	}
}
