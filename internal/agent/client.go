package agent

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/study-extract/internal/resilience"
)

const (
	locatePoll = 500 * time.Millisecond
	ingestPoll = 500 * time.Millisecond
)

// ErrNoAffordance is returned by LocateAffordance when no candidate matched
// within the search bound.
var ErrNoAffordance = eris.New("no candidate element matched")

// LocateAffordance polls page until one of candidates matches a visible
// element and returns it with the matcher that found it. Candidates are
// tried in order on every poll. A selector that errors is skipped.
func LocateAffordance(ctx context.Context, page Page, candidates []Matcher, timeout time.Duration) (Element, Matcher, error) {
	var (
		found Element
		which Matcher
	)
	err := resilience.Await(ctx, locatePoll, timeout, func(ctx context.Context) (bool, error) {
		for _, m := range candidates {
			el, ok, err := page.Find(ctx, m)
			if err != nil {
				zap.L().Debug("matcher failed", zap.Stringer("matcher", m), zap.Error(err))
				continue
			}
			if ok {
				found, which = el, m
				return true, nil
			}
		}
		return false, nil
	})
	if errors.Is(err, resilience.ErrTimedOut) {
		return nil, Matcher{}, ErrNoAffordance
	}
	if err != nil {
		return nil, Matcher{}, err
	}
	return found, which, nil
}

// Client drives turns through a browser session.
type Client struct {
	browser Browser
	opts    Options
	aff     Affordances
	check   func(path string) error
	limiter *rate.Limiter
	home    Page
}

// NewClient returns a Client that opens one page per turn on b.
func NewClient(b Browser, opts Options, options ...Option) *Client {
	s := defaultSettings()
	for _, o := range options {
		o(&s)
	}
	return &Client{
		browser: b,
		opts:    opts,
		aff:     s.affordances,
		check:   s.check,
		limiter: newLimiter(opts.MinTurnInterval),
	}
}

// Prepare opens the home page, retrying the first navigation, and blocks
// until the session shows a logged-in indicator. The home page stays open
// until Close.
func (c *Client) Prepare(ctx context.Context) error {
	page, err := c.browser.NewPage(ctx)
	if err != nil {
		return newTurnError(KindSessionFailed, "open", err)
	}
	c.home = page

	retry := resilience.NavigationRetryConfig()
	retry.ShouldRetry = func(err error) bool { return !errors.Is(err, context.Canceled) }
	retry.OnRetry = resilience.RetryLogger("agent", "navigate")
	err = resilience.Do(ctx, retry, func(ctx context.Context) error {
		navCtx, cancel := context.WithTimeout(ctx, c.opts.NavigateTimeout)
		defer cancel()
		return page.Navigate(navCtx, c.opts.URL)
	})
	if err != nil {
		return newTurnError(KindSessionFailed, "navigate", err)
	}
	return c.awaitLogin(ctx, page)
}

func (c *Client) awaitLogin(ctx context.Context, page Page) error {
	zap.L().Info("waiting for agent login", zap.String("url", c.opts.URL), zap.Duration("timeout", c.opts.LoginTimeout))

	start := time.Now()
	diagnosed := false
	err := resilience.Await(ctx, c.opts.LoginPoll, c.opts.LoginTimeout, func(ctx context.Context) (bool, error) {
		if c.anyVisible(ctx, page, c.aff.LoggedIn) {
			return true, nil
		}
		if !diagnosed && time.Since(start) >= c.opts.LoginDiagnosticAfter {
			diagnosed = true
			zap.L().Warn("still waiting for login", zap.Duration("elapsed", time.Since(start)))
			c.screenshot(ctx, page, "login_debug.png")
		}
		return false, nil
	})
	if errors.Is(err, resilience.ErrTimedOut) {
		c.screenshot(ctx, page, "login_timeout.png")
		return newTurnError(KindSessionFailed, "login", err)
	}
	if err != nil {
		return newTurnError(KindSessionFailed, "login", err)
	}

	zap.L().Info("login detected")
	return resilience.Sleep(ctx, c.opts.SettleDelay)
}

// Close releases the home page opened by Prepare.
func (c *Client) Close() error {
	if c.home == nil {
		return nil
	}
	err := c.home.Close()
	c.home = nil
	return err
}

// Interact runs one turn for the document at docPath in a fresh page and
// returns the parsed reply. Every failure is a *TurnError.
func (c *Client) Interact(ctx context.Context, docPath, prompt string) (Result, error) {
	file := filepath.Base(docPath)
	log := zap.L().With(zap.String("file", file))

	if err := c.check(docPath); err != nil {
		return Result{}, newTurnError(KindDocumentInvalid, "check", err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, newTurnError(KindSessionFailed, "pace", err)
	}

	page, err := c.browser.NewPage(ctx)
	if err != nil {
		return Result{}, newTurnError(KindSessionFailed, "open", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Debug("close page", zap.Error(cerr))
		}
	}()

	c.navigate(ctx, log, page)
	if err := c.attach(ctx, log, page, docPath); err != nil {
		return Result{}, err
	}
	if err := c.submit(ctx, page, prompt); err != nil {
		return Result{}, err
	}
	log.Info("prompt sent, waiting for response")

	text, err := c.awaitReply(ctx, log, page)
	if err != nil {
		return Result{}, err
	}
	data, err := ParseReply(text)
	if err != nil {
		return Result{SourceID: file, Raw: text}, err
	}
	return Result{SourceID: file, Data: data, Raw: text}, nil
}

// navigate loads the session endpoint. A slow load is logged, not fatal.
func (c *Client) navigate(ctx context.Context, log *zap.Logger, page Page) {
	navCtx, cancel := context.WithTimeout(ctx, c.opts.NavigateTimeout)
	defer cancel()
	if err := page.Navigate(navCtx, c.opts.URL); err != nil {
		log.Warn("page load slow, continuing", zap.Error(err))
	}
}

func (c *Client) attach(ctx context.Context, log *zap.Logger, page Page, docPath string) error {
	if err := resilience.Sleep(ctx, c.opts.SettleDelay); err != nil {
		return newTurnError(KindSessionFailed, "settle", err)
	}

	chooser, err := page.ArmFileChooser(ctx)
	if err != nil {
		return newTurnError(KindUploadFailed, "arm_file_chooser", err)
	}
	defer chooser.Release()

	// Focusing the editor reveals the attach controls.
	if el, ok, _ := c.first(ctx, page, c.aff.Editor); ok {
		_ = el.Click(ctx)
	}

	btn, m, err := LocateAffordance(ctx, page, c.aff.AttachButtons, c.opts.AffordanceTimeout)
	if err != nil {
		c.screenshot(ctx, page, "no_plus.png")
		return newTurnError(KindAffordanceNotFound, "attach_button", err)
	}
	log.Debug("attach button found", zap.Stringer("matcher", m))
	if err := btn.Click(ctx); err != nil {
		return newTurnError(KindAffordanceNotFound, "attach_button", err)
	}

	if err := resilience.Sleep(ctx, c.opts.MenuDelay); err != nil {
		return newTurnError(KindSessionFailed, "menu", err)
	}
	item, _, err := LocateAffordance(ctx, page, c.aff.UploadItems, c.opts.AffordanceTimeout)
	if err != nil {
		return newTurnError(KindAffordanceNotFound, "upload_item", err)
	}
	if err := item.Click(ctx); err != nil {
		return newTurnError(KindAffordanceNotFound, "upload_item", err)
	}

	fcCtx, cancel := context.WithTimeout(ctx, c.opts.FileChooserTimeout)
	defer cancel()
	if err := chooser.SetFiles(fcCtx, docPath); err != nil {
		return newTurnError(KindUploadFailed, "set_files", err)
	}

	log.Info("uploading")
	err = resilience.Await(ctx, ingestPoll, c.opts.IngestTimeout, func(ctx context.Context) (bool, error) {
		return c.anyVisible(ctx, page, c.aff.Ingested), nil
	})
	switch {
	case err == nil:
		err = resilience.Sleep(ctx, c.opts.SettleDelay)
	case errors.Is(err, resilience.ErrTimedOut):
		log.Warn("no upload acknowledgment, continuing after fallback", zap.Duration("fallback", c.opts.IngestFallback))
		err = resilience.Sleep(ctx, c.opts.IngestFallback)
	}
	if err != nil {
		return newTurnError(KindUploadFailed, "ingest", err)
	}
	return nil
}

func (c *Client) submit(ctx context.Context, page Page, prompt string) error {
	editor, _, err := LocateAffordance(ctx, page, c.aff.Editor, c.opts.AffordanceTimeout)
	if err != nil {
		return newTurnError(KindAffordanceNotFound, "editor", err)
	}
	if err := editor.Fill(ctx, prompt); err != nil {
		return newTurnError(KindSessionFailed, "fill_prompt", err)
	}
	if err := resilience.Sleep(ctx, c.opts.SubmitPause); err != nil {
		return newTurnError(KindSessionFailed, "submit", err)
	}
	if err := editor.PressEnter(ctx); err != nil {
		return newTurnError(KindSessionFailed, "submit", err)
	}
	return nil
}

// awaitReply waits for generation to finish and returns the reply text. A
// completion timeout is logged and the best available text is still read.
func (c *Client) awaitReply(ctx context.Context, log *zap.Logger, page Page) (string, error) {
	if err := resilience.Sleep(ctx, c.opts.CompletionGrace); err != nil {
		return "", newTurnError(KindSessionFailed, "completion", err)
	}

	err := resilience.Await(ctx, c.opts.CompletionInterval, c.opts.CompletionTimeout, func(ctx context.Context) (bool, error) {
		if c.count(ctx, page, c.aff.Busy) > 0 {
			return false, nil
		}
		return c.count(ctx, page, c.aff.Responses) > 0, nil
	})
	switch {
	case err == nil:
		err = resilience.Sleep(ctx, c.opts.SettleDelay)
	case errors.Is(err, resilience.ErrTimedOut):
		log.Warn("response incomplete, reading what is there",
			zap.Error(newTurnError(KindInteractionTimeout, "completion", err)))
		err = nil
	}
	if err != nil {
		return "", newTurnError(KindSessionFailed, "completion", err)
	}

	for _, m := range c.aff.Responses {
		text, ok, err := page.LastText(ctx, m)
		if err == nil && ok {
			return text, nil
		}
	}

	log.Warn("no response container, falling back to page content")
	if err := resilience.Sleep(ctx, c.opts.NoResponseWait); err != nil {
		return "", newTurnError(KindSessionFailed, "read_reply", err)
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return "", newTurnError(KindSessionFailed, "read_reply", err)
	}
	return html, nil
}

func (c *Client) first(ctx context.Context, page Page, matchers []Matcher) (Element, bool, error) {
	for _, m := range matchers {
		el, ok, err := page.Find(ctx, m)
		if err != nil {
			continue
		}
		if ok {
			return el, true, nil
		}
	}
	return nil, false, nil
}

func (c *Client) anyVisible(ctx context.Context, page Page, matchers []Matcher) bool {
	_, ok, _ := c.first(ctx, page, matchers)
	return ok
}

func (c *Client) count(ctx context.Context, page Page, matchers []Matcher) int {
	total := 0
	for _, m := range matchers {
		n, err := page.Count(ctx, m)
		if err == nil {
			total += n
		}
	}
	return total
}

func (c *Client) screenshot(ctx context.Context, page Page, name string) {
	path := filepath.Join(c.opts.DebugDir, name)
	if err := page.Screenshot(ctx, path); err != nil {
		zap.L().Warn("diagnostic screenshot failed", zap.String("path", path), zap.Error(err))
		return
	}
	zap.L().Info("saved diagnostic screenshot", zap.String("path", path))
}
