package browser

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"

	"github.com/sells-group/study-extract/internal/agent"
)

const clickTimeout = 10 * time.Second

// Tab is one rod page implementing agent.Page.
type Tab struct {
	page           *rod.Page
	chooserTimeout time.Duration
}

var _ agent.Page = (*Tab)(nil)

// Navigate loads url and waits for the load event.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	p := t.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return eris.Wrapf(err, "browser: navigate %s", url)
	}
	if err := p.WaitLoad(); err != nil {
		return eris.Wrap(err, "browser: wait load")
	}
	return nil
}

// ArmFileChooser intercepts the next native file dialog. The chooser
// timeout starts now, covering the clicks that open the dialog.
func (t *Tab) ArmFileChooser(ctx context.Context) (agent.FileChooser, error) {
	p := t.page.Context(ctx)
	release := func() {}
	if t.chooserTimeout > 0 {
		p = p.Timeout(t.chooserTimeout)
		release = func() { p.CancelTimeout() }
	}
	set, err := p.HandleFileDialog()
	if err != nil {
		release()
		return nil, eris.Wrap(err, "browser: intercept file dialog")
	}
	return &chooser{set: set, release: sync.OnceFunc(release)}, nil
}

type chooser struct {
	set     func([]string) error
	release func()
}

func (c *chooser) SetFiles(ctx context.Context, paths ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer c.release()
	if err := c.set(paths); err != nil {
		return eris.Wrap(err, "browser: file dialog")
	}
	return nil
}

func (c *chooser) Release() { c.release() }

func (t *Tab) matching(ctx context.Context, m agent.Matcher, visibleOnly bool) ([]*rod.Element, error) {
	els, err := t.page.Context(ctx).Elements(m.CSS)
	if err != nil {
		return nil, eris.Wrapf(err, "browser: query %s", m)
	}
	var out []*rod.Element
	for _, el := range els {
		if keep(m, visibleOnly, el.Visible, el.Text) {
			out = append(out, el)
		}
	}
	return out, nil
}

// keep applies the visibility and text filters of m to one element. The
// lookups only run when their filter is active; a lookup error drops
// the element.
func keep(m agent.Matcher, visibleOnly bool, visible func() (bool, error), text func() (string, error)) bool {
	if visibleOnly {
		if vis, err := visible(); err != nil || !vis {
			return false
		}
	}
	if m.Text != "" {
		txt, err := text()
		if err != nil || !m.MatchText(txt) {
			return false
		}
	}
	return true
}

// Find returns the first visible element matching m.
func (t *Tab) Find(ctx context.Context, m agent.Matcher) (agent.Element, bool, error) {
	els, err := t.matching(ctx, m, true)
	if err != nil || len(els) == 0 {
		return nil, false, err
	}
	return &element{el: els[0]}, true, nil
}

// Count returns the number of visible elements matching m.
func (t *Tab) Count(ctx context.Context, m agent.Matcher) (int, error) {
	els, err := t.matching(ctx, m, true)
	return len(els), err
}

// LastText returns the rendered text of the last element matching m,
// visible or not.
func (t *Tab) LastText(ctx context.Context, m agent.Matcher) (string, bool, error) {
	els, err := t.matching(ctx, m, false)
	if err != nil || len(els) == 0 {
		return "", false, err
	}
	txt, err := els[len(els)-1].Context(ctx).Text()
	if err != nil {
		return "", false, eris.Wrap(err, "browser: read text")
	}
	return txt, true, nil
}

// HTML returns the page's full HTML.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	html, err := t.page.Context(ctx).HTML()
	if err != nil {
		return "", eris.Wrap(err, "browser: page html")
	}
	return html, nil
}

// Screenshot writes a full-page PNG to path.
func (t *Tab) Screenshot(ctx context.Context, path string) error {
	data, err := t.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return eris.Wrap(err, "browser: screenshot")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "browser: write %s", path)
	}
	return nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	return t.page.Close()
}

type element struct {
	el *rod.Element
}

// Click clicks the element, falling back to a DOM click when the element is
// covered or not yet interactable.
func (e *element) Click(ctx context.Context) error {
	err := e.el.Context(ctx).Timeout(clickTimeout).Click(proto.InputMouseButtonLeft, 1)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, jsErr := e.el.Context(ctx).Eval(`() => this.click()`); jsErr != nil {
		return eris.Wrap(err, "browser: click")
	}
	return nil
}

// Fill replaces the element's content with text.
func (e *element) Fill(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.Focus(); err != nil {
		return eris.Wrap(err, "browser: focus")
	}
	// Textareas support select(); contenteditable divs are cleared by script.
	if err := el.SelectAllText(); err != nil {
		if _, err := el.Eval(`() => { this.textContent = "" }`); err != nil {
			return eris.Wrap(err, "browser: clear")
		}
	}
	if err := el.Input(text); err != nil {
		return eris.Wrap(err, "browser: input")
	}
	return nil
}

// PressEnter sends an Enter key press to the element.
func (e *element) PressEnter(ctx context.Context) error {
	if err := e.el.Context(ctx).Type(input.Enter); err != nil {
		return eris.Wrap(err, "browser: press enter")
	}
	return nil
}
