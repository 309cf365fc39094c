package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const minNavigationTimeout = 30 * time.Second

// PlaywrightLauncher launches headless Chromium through playwright-go.
type PlaywrightLauncher struct {
	opts   Options
	logger *zap.Logger
}

// Launch starts the Playwright driver, a Chromium browser and one page.
func (l *PlaywrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.Named(l.logger, "browser").With(zap.String("driver", "playwright"))

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start Playwright (is the driver installed?): %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if l.opts.ActionTimeout > 0 {
		page.SetDefaultTimeout(float64(l.opts.ActionTimeout.Milliseconds()))
		nav := l.opts.ActionTimeout
		if nav < minNavigationTimeout {
			nav = minNavigationTimeout
		}
		page.SetDefaultNavigationTimeout(float64(nav.Milliseconds()))
	}

	logger.Info("browser session started", zap.Bool("headless", l.opts.Headless))
	return &playwrightSession{pw: pw, browser: browser, page: page, logger: logger}, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  *zap.Logger
}

func (s *playwrightSession) locate(loc Locator) (playwright.Locator, error) {
	var l playwright.Locator
	switch loc.By {
	case ByID:
		l = s.page.Locator(cssAttr("id", loc.Value))
	case ByName:
		l = s.page.Locator(cssAttr("name", loc.Value))
	case ByCSS:
		l = s.page.Locator(loc.Value)
	case ByXPath:
		l = s.page.Locator("xpath=" + loc.Value)
	case ByText:
		l = s.page.GetByText(loc.Value, playwright.PageGetByTextOptions{Exact: playwright.Bool(true)})
	case ByLinkText:
		l = s.page.GetByRole(playwright.AriaRole("link"), playwright.PageGetByRoleOptions{Name: loc.Value})
	case ByRole:
		if loc.Name != "" {
			l = s.page.GetByRole(playwright.AriaRole(loc.Value), playwright.PageGetByRoleOptions{Name: loc.Name})
		} else {
			l = s.page.GetByRole(playwright.AriaRole(loc.Value))
		}
	default:
		return nil, fmt.Errorf("unsupported locator strategy %q", loc.By)
	}
	return l.First(), nil
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Debug("navigate", zap.String("url", url))
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *playwrightSession) Click(ctx context.Context, loc Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l, err := s.locate(loc)
	if err != nil {
		return err
	}
	if err := l.Click(); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

func (s *playwrightSession) Fill(ctx context.Context, loc Locator, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l, err := s.locate(loc)
	if err != nil {
		return err
	}
	if err := l.Fill(text); err != nil {
		return fmt.Errorf("fill %s: %w", loc, err)
	}
	return nil
}

func (s *playwrightSession) Press(ctx context.Context, loc Locator, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l, err := s.locate(loc)
	if err != nil {
		return err
	}
	if err := l.Press(key); err != nil {
		return fmt.Errorf("press %s on %s: %w", key, loc, err)
	}
	return nil
}

func (s *playwrightSession) WaitFor(ctx context.Context, loc Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l, err := s.locate(loc)
	if err != nil {
		return err
	}
	if err := l.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return fmt.Errorf("wait for %s: %w", loc, err)
	}
	return nil
}

func (s *playwrightSession) Sleep(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

func (s *playwrightSession) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("page source: %w", err)
	}
	return html, nil
}

func (s *playwrightSession) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	s.logger.Info("browser session closed")
	return errors.Join(errs...)
}
