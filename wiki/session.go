package wiki

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Session is one signed-in browser session against a wiki. Not safe for
// concurrent use; every run gets its own Session.
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
}

// Start launches Chrome (or connects to cfg.RemoteURL) and opens one
// stealth tab. Call Close when done, on every exit path.
func Start(cfg Config) (*Session, error) {
	cfg.defaults()
	log := cfg.Logger

	var wsURL string
	var lnch *launcher.Launcher

	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
		log.Info("wiki: connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(!cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("wiki: launch browser: %w", err)
		}
		wsURL = u
		lnch = l
		log.Info("wiki: launched local chrome", "headful", cfg.Headful)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, fmt.Errorf("wiki: connect: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		b.Close()
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, fmt.Errorf("wiki: create tab: %w", err)
	}

	return &Session{cfg: cfg, browser: b, lnch: lnch, page: page}, nil
}

// Close shuts down the tab and the browser.
func (s *Session) Close() error {
	if s.page != nil {
		s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return nil
}

// Login navigates to the sign-in form, fills it and submits. It returns
// once the post-login page has loaded.
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavTimeout)
	defer cancel()

	loginURL := s.cfg.BaseURL + s.cfg.LoginPath
	if err := s.page.Context(navCtx).Navigate(loginURL); err != nil {
		return fmt.Errorf("wiki: navigate %s: %w", loginURL, err)
	}
	if err := s.page.Context(navCtx).WaitLoad(); err != nil {
		s.cfg.Logger.Warn("wiki: login page load timeout", "error", err)
	}

	if err := s.fillField(navCtx, selUsername, creds.Username); err != nil {
		return err
	}
	if err := s.fillField(navCtx, selPassword, creds.Password); err != nil {
		return err
	}

	button, err := s.page.Context(navCtx).Element(selLoginButton)
	if err != nil {
		return fmt.Errorf("wiki: find login button: %w", err)
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("wiki: click login: %w", err)
	}
	if err := s.page.Context(navCtx).WaitLoad(); err != nil {
		return fmt.Errorf("wiki: wait post-login load: %w", err)
	}

	s.cfg.Logger.Info("wiki: signed in", "user", creds.Username)
	return nil
}

// WatchlistHTML navigates to the watchlist and returns the HTML of every
// change-list container, in document order. The scanner consumes these
// fragments.
func (s *Session) WatchlistHTML(ctx context.Context) ([]string, error) {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavTimeout)
	defer cancel()

	watchlistURL := s.cfg.BaseURL + s.cfg.WatchlistPath
	if err := s.page.Context(navCtx).Navigate(watchlistURL); err != nil {
		return nil, fmt.Errorf("wiki: navigate %s: %w", watchlistURL, err)
	}
	if err := s.page.Context(navCtx).WaitLoad(); err != nil {
		s.cfg.Logger.Warn("wiki: watchlist load timeout", "error", err)
	}

	// Element blocks until the first container exists; Elements then
	// collects all of them.
	if _, err := s.page.Context(navCtx).Element(s.cfg.Selector); err != nil {
		return nil, fmt.Errorf("wiki: wait for change list %q: %w", s.cfg.Selector, err)
	}
	els, err := s.page.Context(navCtx).Elements(s.cfg.Selector)
	if err != nil {
		return nil, fmt.Errorf("wiki: collect change lists: %w", err)
	}

	fragments := make([]string, 0, len(els))
	for _, el := range els {
		html, err := el.HTML()
		if err != nil {
			return nil, fmt.Errorf("wiki: read change list HTML: %w", err)
		}
		fragments = append(fragments, html)
	}

	s.cfg.Logger.Info("wiki: fetched watchlist", "containers", len(fragments))
	return fragments, nil
}

func (s *Session) fillField(ctx context.Context, selector, value string) error {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("wiki: find %s: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("wiki: fill %s: %w", selector, err)
	}
	return nil
}
