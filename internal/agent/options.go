package agent

import (
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/study-extract/internal/config"
	"github.com/sells-group/study-extract/internal/corpus"
)

// Options bounds every step of a browser turn.
type Options struct {
	URL                string
	NavigateTimeout    time.Duration
	SettleDelay        time.Duration
	FileChooserTimeout time.Duration
	MenuDelay          time.Duration
	AffordanceTimeout  time.Duration
	SubmitPause        time.Duration
	IngestTimeout      time.Duration
	IngestFallback     time.Duration
	CompletionGrace    time.Duration
	CompletionInterval time.Duration
	CompletionTimeout  time.Duration
	// NoResponseWait is the extra wait before falling back to page HTML
	// when no response container appeared.
	NoResponseWait  time.Duration
	MinTurnInterval time.Duration

	LoginTimeout time.Duration
	LoginPoll    time.Duration
	// LoginDiagnosticAfter is how long the login wait runs before a
	// diagnostic screenshot is taken.
	LoginDiagnosticAfter time.Duration
	DebugDir             string
}

// OptionsFromConfig builds turn options from the agent and browser config.
func OptionsFromConfig(a config.AgentConfig, b config.BrowserConfig) Options {
	return Options{
		URL:                  a.URL,
		NavigateTimeout:      a.NavigateTimeout,
		SettleDelay:          a.SettleDelay,
		FileChooserTimeout:   a.FileChooserTimeout,
		MenuDelay:            a.MenuDelay,
		AffordanceTimeout:    a.AffordanceTimeout,
		SubmitPause:          time.Second,
		IngestTimeout:        a.IngestTimeout,
		IngestFallback:       a.IngestFallback,
		CompletionGrace:      a.CompletionGrace,
		CompletionInterval:   a.CompletionInterval,
		CompletionTimeout:    a.CompletionTimeout,
		NoResponseWait:       10 * time.Second,
		MinTurnInterval:      a.MinTurnInterval,
		LoginTimeout:         b.LoginTimeout,
		LoginPoll:            b.LoginPoll,
		LoginDiagnosticAfter: time.Minute,
		DebugDir:             b.DebugDir,
	}
}

// Option customises a Client or APIClient.
type Option func(*settings)

type settings struct {
	affordances Affordances
	check       func(path string) error
}

func defaultSettings() settings {
	return settings{
		affordances: GeminiAffordances(),
		check:       checkDocument,
	}
}

// checkDocument is the default pre-turn gate. Only a missing or unreadable
// file stops the turn. A PDF pdfcpu cannot parse is still sent, as the
// remote agent may read it.
func checkDocument(path string) error {
	pages, err := corpus.Check(path)
	switch {
	case err == nil:
		zap.L().Debug("document checked", zap.String("file", filepath.Base(path)), zap.Int("pages", pages))
		return nil
	case errors.Is(err, corpus.ErrInvalidDocument):
		zap.L().Warn("document failed local PDF parse, sending anyway",
			zap.String("file", filepath.Base(path)), zap.Error(err))
		return nil
	default:
		return err
	}
}

// WithAffordances replaces the default Gemini matchers.
func WithAffordances(a Affordances) Option {
	return func(s *settings) { s.affordances = a }
}

// WithDocumentCheck replaces the PDF check run before every turn.
func WithDocumentCheck(fn func(path string) error) Option {
	return func(s *settings) { s.check = fn }
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
