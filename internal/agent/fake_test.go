package agent

import (
	"context"
	"errors"
	"time"
)

type fakeElement struct {
	page *fakePage
	key  string
}

func (e *fakeElement) Click(context.Context) error {
	e.page.clicks = append(e.page.clicks, e.key)
	return nil
}

func (e *fakeElement) Fill(_ context.Context, text string) error {
	e.page.filled = text
	return nil
}

func (e *fakeElement) PressEnter(context.Context) error {
	e.page.submitted = true
	if e.page.onSubmit != nil {
		e.page.onSubmit(e.page)
	}
	return nil
}

type fakeChooser struct {
	page *fakePage
}

func (c *fakeChooser) SetFiles(_ context.Context, paths ...string) error {
	if c.page.setFilesErr != nil {
		return c.page.setFilesErr
	}
	c.page.files = append(c.page.files, paths...)
	return nil
}

func (c *fakeChooser) Release() { c.page.releases++ }

// fakePage serves elements keyed by Matcher.String().
type fakePage struct {
	present map[string]bool
	counts  map[string]int
	texts   map[string]string
	html    string

	navErrs     []error
	navCalls    int
	armErr      error
	setFilesErr error
	onSubmit    func(*fakePage)
	findCalls   int

	clicks      []string
	filled      string
	submitted   bool
	files       []string
	releases    int
	screenshots []string
	closed      bool
}

func newFakePage() *fakePage {
	return &fakePage{present: map[string]bool{}, counts: map[string]int{}, texts: map[string]string{}}
}

func (p *fakePage) Navigate(context.Context, string) error {
	p.navCalls++
	if len(p.navErrs) > 0 {
		err := p.navErrs[0]
		p.navErrs = p.navErrs[1:]
		return err
	}
	return nil
}

func (p *fakePage) ArmFileChooser(context.Context) (FileChooser, error) {
	if p.armErr != nil {
		return nil, p.armErr
	}
	return &fakeChooser{page: p}, nil
}

func (p *fakePage) Find(_ context.Context, m Matcher) (Element, bool, error) {
	p.findCalls++
	if p.present[m.String()] {
		return &fakeElement{page: p, key: m.String()}, true, nil
	}
	return nil, false, nil
}

func (p *fakePage) Count(_ context.Context, m Matcher) (int, error) {
	return p.counts[m.String()], nil
}

func (p *fakePage) LastText(_ context.Context, m Matcher) (string, bool, error) {
	t, ok := p.texts[m.String()]
	return t, ok, nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	return p.html, nil
}

func (p *fakePage) Screenshot(_ context.Context, path string) error {
	p.screenshots = append(p.screenshots, path)
	return nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeBrowser struct {
	pages   []*fakePage
	opened  int
	openErr error
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	if b.opened >= len(b.pages) {
		return nil, errors.New("no more pages")
	}
	p := b.pages[b.opened]
	b.opened++
	return p, nil
}

func fastOptions(debugDir string) Options {
	return Options{
		URL:                  "https://agent.example/app",
		NavigateTimeout:      50 * time.Millisecond,
		FileChooserTimeout:   50 * time.Millisecond,
		AffordanceTimeout:    20 * time.Millisecond,
		IngestTimeout:        20 * time.Millisecond,
		CompletionInterval:   time.Millisecond,
		CompletionTimeout:    20 * time.Millisecond,
		LoginTimeout:         30 * time.Millisecond,
		LoginPoll:            time.Millisecond,
		LoginDiagnosticAfter: 0,
		DebugDir:             debugDir,
	}
}

func noCheck(string) error { return nil }

const responsesKey = "model-response, .model-response-text"

// readyPage returns a page on which a full turn succeeds with reply.
func readyPage(reply string) *fakePage {
	p := newFakePage()
	p.present["div[contenteditable='true']"] = true
	p.present["button[aria-label*='Upload']"] = true
	p.present["div[role='menuitem']:has-text(Upload)"] = true
	p.present["file-chip"] = true
	p.onSubmit = func(p *fakePage) {
		p.counts[responsesKey] = 1
		p.texts[responsesKey] = reply
	}
	return p
}
