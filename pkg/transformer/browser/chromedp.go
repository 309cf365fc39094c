package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
	"go.uber.org/zap"
)

// ChromedpLauncher launches Chrome over the DevTools protocol with chromedp.
type ChromedpLauncher struct {
	opts   Options
	logger *zap.Logger
}

// Launch starts a Chrome process and opens one tab.
func (l *ChromedpLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.Named(l.logger, "browser").With(zap.String("driver", "chromedp"))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", l.opts.Headless),
		chromedp.WindowSize(1280, 800),
	)

	// The session outlives the launch call; Close cancels both contexts.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	logger.Info("browser session started", zap.Bool("headless", l.opts.Headless))
	return &chromedpSession{
		ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		timeout:       l.opts.ActionTimeout,
		logger:        logger,
	}, nil
}

type chromedpSession struct {
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	timeout       time.Duration
	logger        *zap.Logger
}

// run executes actions in the tab, bounded by the action timeout and by the
// caller's ctx.
func (s *chromedpSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx := s.ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// query translates a locator into a chromedp selector and query option.
func query(loc Locator) (string, chromedp.QueryOption, error) {
	switch loc.By {
	case ByID:
		return cssAttr("id", loc.Value), chromedp.ByQuery, nil
	case ByName:
		return cssAttr("name", loc.Value), chromedp.ByQuery, nil
	case ByCSS:
		return loc.Value, chromedp.ByQuery, nil
	case ByXPath:
		return loc.Value, chromedp.BySearch, nil
	case ByText:
		return fmt.Sprintf(`//*[normalize-space(text())=%s]`, xpathLiteral(loc.Value)), chromedp.BySearch, nil
	case ByLinkText:
		return fmt.Sprintf(`//a[normalize-space(.)=%s]`, xpathLiteral(loc.Value)), chromedp.BySearch, nil
	case ByRole:
		return roleXPath(loc.Value, loc.Name), chromedp.BySearch, nil
	}
	return "", nil, fmt.Errorf("unsupported locator strategy %q", loc.By)
}

// implicitRoles maps ARIA roles to the elements that carry them implicitly.
var implicitRoles = map[string]string{
	"button":   `self::button or (self::input and (@type="submit" or @type="button" or @type="reset"))`,
	"link":     `self::a[@href]`,
	"textbox":  `self::textarea or (self::input and (not(@type) or @type="text" or @type="email" or @type="password" or @type="tel" or @type="url"))`,
	"checkbox": `self::input[@type="checkbox"]`,
	"radio":    `self::input[@type="radio"]`,
	"combobox": `self::select`,
	"heading":  `self::h1 or self::h2 or self::h3 or self::h4 or self::h5 or self::h6`,
	"img":      `self::img`,
}

func roleXPath(role, name string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	match := fmt.Sprintf(`@role=%s`, xpathLiteral(role))
	if implicit, ok := implicitRoles[role]; ok {
		match += " or " + implicit
	}
	xp := fmt.Sprintf(`//*[%s]`, match)
	if name != "" {
		lit := xpathLiteral(name)
		xp += fmt.Sprintf(`[normalize-space(.)=%s or @aria-label=%s or @value=%s or @placeholder=%s]`, lit, lit, lit, lit)
	}
	return xp
}

// keyNames maps Playwright-style key names to chromedp key sequences.
var keyNames = map[string]string{
	"enter":      kb.Enter,
	"tab":        kb.Tab,
	"escape":     kb.Escape,
	"backspace":  kb.Backspace,
	"delete":     kb.Delete,
	"arrowdown":  kb.ArrowDown,
	"arrowup":    kb.ArrowUp,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"home":       kb.Home,
	"end":        kb.End,
	"pagedown":   kb.PageDown,
	"pageup":     kb.PageUp,
}

func keySequence(key string) string {
	if seq, ok := keyNames[strings.ToLower(strings.TrimSpace(key))]; ok {
		return seq
	}
	return key
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("navigate", zap.String("url", url))
	timeout := s.timeout
	if timeout > 0 && timeout < minNavigationTimeout {
		timeout = minNavigationTimeout
	}
	if err := s.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *chromedpSession) Click(ctx context.Context, loc Locator) error {
	sel, by, err := query(loc)
	if err != nil {
		return err
	}
	if err := s.run(ctx, s.timeout, chromedp.Click(sel, by, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

func (s *chromedpSession) Fill(ctx context.Context, loc Locator, text string) error {
	sel, by, err := query(loc)
	if err != nil {
		return err
	}
	if err := s.run(ctx, s.timeout,
		chromedp.WaitVisible(sel, by),
		chromedp.SetValue(sel, "", by),
		chromedp.SendKeys(sel, text, by),
	); err != nil {
		return fmt.Errorf("fill %s: %w", loc, err)
	}
	return nil
}

func (s *chromedpSession) Press(ctx context.Context, loc Locator, key string) error {
	sel, by, err := query(loc)
	if err != nil {
		return err
	}
	if err := s.run(ctx, s.timeout, chromedp.SendKeys(sel, keySequence(key), by)); err != nil {
		return fmt.Errorf("press %s on %s: %w", key, loc, err)
	}
	return nil
}

func (s *chromedpSession) WaitFor(ctx context.Context, loc Locator) error {
	sel, by, err := query(loc)
	if err != nil {
		return err
	}
	if err := s.run(ctx, s.timeout, chromedp.WaitVisible(sel, by)); err != nil {
		return fmt.Errorf("wait for %s: %w", loc, err)
	}
	return nil
}

func (s *chromedpSession) Sleep(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

func (s *chromedpSession) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("page source: %w", err)
	}
	return html, nil
}

func (s *chromedpSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.browserCancel()
	s.allocCancel()
	s.logger.Info("browser session closed")
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
