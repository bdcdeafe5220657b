// Package browser implements the agent page seam on Chrome via go-rod.
package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/stealth"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/study-extract/internal/agent"
	"github.com/sells-group/study-extract/internal/config"
)

// Options configures the Chrome instance.
type Options struct {
	// Bin is the Chrome executable. Empty lets rod find or download one.
	Bin string
	// UserDataDir is the persistent profile holding the agent login.
	UserDataDir string
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// When set nothing is launched.
	RemoteURL          string
	Headless           bool
	FileChooserTimeout time.Duration
}

// OptionsFromConfig builds Options from the browser and agent config.
func OptionsFromConfig(b config.BrowserConfig, a config.AgentConfig) Options {
	return Options{
		Bin:                b.Bin,
		UserDataDir:        b.UserDataDir,
		RemoteURL:          b.RemoteURL,
		Headless:           b.Headless,
		FileChooserTimeout: a.FileChooserTimeout,
	}
}

// Session is a connected Chrome. Each NewPage is a fresh stealth tab.
type Session struct {
	opts    Options
	browser *rod.Browser
	lnch    *launcher.Launcher
}

func newLauncher(opts Options) *launcher.Launcher {
	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("start-maximized").
		Set("disable-notifications").
		Set(flags.NoFirstRun).
		Set(flags.NoDefaultBrowserCheck).
		Delete("enable-automation")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}
	return l
}

// Launch starts Chrome, or attaches to RemoteURL, and connects to it.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{opts: opts}

	wsURL := opts.RemoteURL
	if wsURL != "" {
		zap.L().Info("connecting to remote chrome", zap.String("url", wsURL))
	} else {
		l := newLauncher(opts).Context(ctx)
		u, err := l.Launch()
		if err != nil {
			return nil, eris.Wrap(err, "browser: launch")
		}
		wsURL = u
		s.lnch = l
		zap.L().Info("launched chrome",
			zap.Bool("headless", opts.Headless),
			zap.String("user_data_dir", opts.UserDataDir),
		)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, eris.Wrap(err, "browser: connect")
	}
	s.browser = b
	return s, nil
}

// NewPage opens a stealth tab.
func (s *Session) NewPage(ctx context.Context) (agent.Page, error) {
	p, err := stealth.Page(s.browser)
	if err != nil {
		return nil, eris.Wrap(err, "browser: create tab")
	}
	return &Tab{page: p, chooserTimeout: s.opts.FileChooserTimeout}, nil
}

// Close shuts the browser down. A remote browser is only disconnected.
func (s *Session) Close() error {
	s.cleanup()
	return nil
}

func (s *Session) cleanup() {
	if s.browser != nil {
		if s.lnch != nil {
			if err := s.browser.Close(); err != nil {
				zap.L().Debug("close browser", zap.Error(err))
			}
		}
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}
