// Package browsertest provides an in-memory browser.Session for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/i-StarX/tc-transformer/pkg/transformer/browser"
)

// Call records one method invocation on a Session.
type Call struct {
	Method  string
	URL     string
	Locator browser.Locator
	Text    string
	Delay   time.Duration
}

// Session records calls and serves page markup keyed by the last navigated URL.
type Session struct {
	mu sync.Mutex

	// Pages maps a URL to the markup returned after navigating to it.
	Pages map[string]string
	// DefaultPage is returned when the current URL has no entry in Pages.
	DefaultPage string
	// FailOn makes the named method return an error.
	FailOn map[string]error

	current string
	calls   []Call
	closed  int
}

// New returns an empty Session.
func New() *Session {
	return &Session{Pages: map[string]string{}, FailOn: map[string]error{}}
}

func (s *Session) record(c Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	if err, ok := s.FailOn[c.Method]; ok {
		return err
	}
	return nil
}

// Navigate records the navigation and makes url current.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.record(Call{Method: "Navigate", URL: url}); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = url
	s.mu.Unlock()
	return nil
}

// Click records the click.
func (s *Session) Click(ctx context.Context, loc browser.Locator) error {
	return s.record(Call{Method: "Click", Locator: loc})
}

// Fill records the fill.
func (s *Session) Fill(ctx context.Context, loc browser.Locator, text string) error {
	return s.record(Call{Method: "Fill", Locator: loc, Text: text})
}

// Press records the key press.
func (s *Session) Press(ctx context.Context, loc browser.Locator, key string) error {
	return s.record(Call{Method: "Press", Locator: loc, Text: key})
}

// WaitFor records the wait.
func (s *Session) WaitFor(ctx context.Context, loc browser.Locator) error {
	return s.record(Call{Method: "WaitFor", Locator: loc})
}

// Sleep records the delay without sleeping.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.record(Call{Method: "Sleep", Delay: d})
}

// PageSource returns the markup for the current URL.
func (s *Session) PageSource(ctx context.Context) (string, error) {
	if err := s.record(Call{Method: "PageSource"}); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if page, ok := s.Pages[s.current]; ok {
		return page, nil
	}
	if s.DefaultPage != "" {
		return s.DefaultPage, nil
	}
	return fmt.Sprintf("<html><body><p>%s</p></body></html>", s.current), nil
}

// Close records the release.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return s.record(Call{Method: "Close"})
}

// Calls returns a copy of the recorded calls.
func (s *Session) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Methods returns the recorded method names in order.
func (s *Session) Methods() []string {
	calls := s.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

// Current returns the last navigated URL.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Closed reports how many times Close was called.
func (s *Session) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ browser.Session = (*Session)(nil)
