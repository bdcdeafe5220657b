// Package agent runs one conversational turn against a remote agent for one
// document: attach the PDF, submit a prompt, wait for the reply, and parse
// the JSON it contains.
package agent

import (
	"context"
	"strings"
)

// Matcher selects page elements by CSS selector, optionally narrowed to
// those whose visible text contains Text (case-insensitive).
type Matcher struct {
	CSS  string
	Text string
}

func (m Matcher) String() string {
	if m.Text == "" {
		return m.CSS
	}
	return m.CSS + ":has-text(" + m.Text + ")"
}

// MatchText reports whether text satisfies the matcher's text filter.
func (m Matcher) MatchText(text string) bool {
	if m.Text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(m.Text))
}

// Element is a located, visible page element.
type Element interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, text string) error
	PressEnter(ctx context.Context) error
}

// FileChooser receives the paths for a native file dialog armed before the
// dialog was triggered.
type FileChooser interface {
	// SetFiles waits for the dialog to open and supplies paths to it.
	SetFiles(ctx context.Context, paths ...string) error
	// Release stops intercepting the dialog. It is safe to call more than
	// once and after SetFiles.
	Release()
}

// Page is the slice of a browser tab a turn needs.
type Page interface {
	Navigate(ctx context.Context, url string) error
	ArmFileChooser(ctx context.Context) (FileChooser, error)
	// Find returns the first visible element matching m without waiting.
	Find(ctx context.Context, m Matcher) (Element, bool, error)
	// Count returns the number of visible elements matching m.
	Count(ctx context.Context, m Matcher) (int, error)
	// LastText returns the text of the last element matching m.
	LastText(ctx context.Context, m Matcher) (string, bool, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Browser opens isolated pages, one per turn.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}

// Result is the parsed reply of one successful turn.
type Result struct {
	SourceID string
	Data     map[string]any
	Raw      string
}
