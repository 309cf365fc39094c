// Package browser defines the browser session used by a pipeline run and the
// drivers that provide it.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Strategy is a locator strategy understood by every driver.
type Strategy string

// Supported locator strategies.
const (
	ByID       Strategy = "id"
	ByName     Strategy = "name"
	ByCSS      Strategy = "css"
	ByXPath    Strategy = "xpath"
	ByText     Strategy = "text"
	ByRole     Strategy = "role"
	ByLinkText Strategy = "link_text"
)

var strategies = map[Strategy]bool{
	ByID: true, ByName: true, ByCSS: true, ByXPath: true,
	ByText: true, ByRole: true, ByLinkText: true,
}

// ParseStrategy validates a strategy name. Common aliases such as
// "css selector" and "link text" are accepted.
func ParseStrategy(s string) (Strategy, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch norm {
	case "css_selector", "selector", "locator":
		norm = string(ByCSS)
	case "linktext", "link":
		norm = string(ByLinkText)
	}
	st := Strategy(norm)
	if !strategies[st] {
		return "", fmt.Errorf("unsupported locator strategy %q", s)
	}
	return st, nil
}

// Locator identifies one element on the current page.
type Locator struct {
	By    Strategy
	Value string
	// Name is the accessible name for ByRole lookups.
	Name string
}

func (l Locator) String() string {
	if l.By == ByRole && l.Name != "" {
		return fmt.Sprintf("%s=%s[name=%q]", l.By, l.Value, l.Name)
	}
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// Session is the single browser session shared by every group of a run.
type Session interface {
	// Navigate loads url in the current page.
	Navigate(ctx context.Context, url string) error
	// Click clicks the element identified by loc.
	Click(ctx context.Context, loc Locator) error
	// Fill replaces the value of the input identified by loc.
	Fill(ctx context.Context, loc Locator, text string) error
	// Press sends a key press to the element identified by loc.
	Press(ctx context.Context, loc Locator, key string) error
	// WaitFor blocks until the element identified by loc is visible.
	WaitFor(ctx context.Context, loc Locator) error
	// Sleep pauses for d, honouring ctx cancellation.
	Sleep(ctx context.Context, d time.Duration) error
	// PageSource returns the current page markup.
	PageSource(ctx context.Context) (string, error)
	// Close releases the session and its browser.
	Close() error
}

// Launcher creates sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Session, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context) (Session, error) {
	return f(ctx)
}

// Options configures a driver.
type Options struct {
	// Driver is "playwright" or "chromedp".
	Driver string
	// Headless runs the browser without a window.
	Headless bool
	// ActionTimeout bounds each element lookup and navigation.
	ActionTimeout time.Duration
}

// NewLauncher returns the launcher for opts.Driver.
func NewLauncher(opts Options, logger *zap.Logger) (Launcher, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "playwright":
		return &PlaywrightLauncher{opts: opts, logger: logger}, nil
	case "chromedp":
		return &ChromedpLauncher{opts: opts, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", opts.Driver)
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cssAttr builds an attribute-equality selector with the value quoted.
func cssAttr(attr, value string) string {
	return fmt.Sprintf(`[%s=%q]`, attr, value)
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = `"` + p + `"`
	}
	return "concat(" + strings.Join(quoted, `, '"', `) + ")"
}
