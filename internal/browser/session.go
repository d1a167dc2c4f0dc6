package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/utils"
)

const (
	navigationTimeout = 50 * time.Second
	defaultTimeout    = 30 * time.Second
	// settleDelay gives client-side rendering a chance to run after the
	// DOM is ready.
	settleDelay = 2 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Options configures a browser session.
type Options struct {
	Headless bool
	SlowMo   time.Duration
	Logger   *zap.Logger
}

// Session owns one Chromium instance with a single page. It is not safe for
// concurrent use.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	logger  *zap.Logger
}

// NewSession launches Chromium and opens a fresh page. Close must be called
// to release the browser.
func NewSession(opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--no-sandbox", "--disable-dev-shm-usage"},
	}
	if opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(float64(opts.SlowMo.Milliseconds()))
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		stopErr := pw.Stop()
		return nil, errors.Join(fmt.Errorf("launch chromium: %w", err), stopErr)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		closeErr := browser.Close()
		stopErr := pw.Stop()
		return nil, errors.Join(fmt.Errorf("create browser context: %w", err), closeErr, stopErr)
	}

	page, err := bctx.NewPage()
	if err != nil {
		closeErr := browser.Close()
		stopErr := pw.Stop()
		return nil, errors.Join(fmt.Errorf("open page: %w", err), closeErr, stopErr)
	}

	page.SetDefaultTimeout(float64(defaultTimeout.Milliseconds()))

	log.Debug("browser session ready", zap.Bool("headless", opts.Headless))

	return &Session{
		pw:      pw,
		browser: browser,
		bctx:    bctx,
		page:    page,
		logger:  log,
	}, nil
}

// Close shuts the page, context and browser down in order.
func (s *Session) Close() error {
	var errs []error
	if s.page != nil {
		errs = append(errs, s.page.Close())
	}
	if s.bctx != nil {
		errs = append(errs, s.bctx.Close())
	}
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.pw != nil {
		errs = append(errs, s.pw.Stop())
	}
	return errors.Join(errs...)
}

func (s *Session) Navigate(ctx context.Context, url string) (*NavResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	url = utils.EnsureScheme(url)
	s.logger.Debug("navigating", zap.String("url", url))

	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(navigationTimeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}

	if err := utils.WaitFor(ctx, settleDelay); err != nil {
		return nil, err
	}

	title, err := s.page.Title()
	if err != nil {
		title = ""
	}

	return &NavResult{URL: s.page.URL(), Title: title}, nil
}

func (s *Session) CurrentURL() string {
	return s.page.URL()
}

func (s *Session) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return content, nil
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.page.Click(selector); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (s *Session) Press(ctx context.Context, selector, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.page.Press(selector, key); err != nil {
		return fmt.Errorf("press %s on %s: %w", key, selector, err)
	}
	return nil
}

func (s *Session) QueryState(ctx context.Context, selector string, timeout time.Duration) (ElementState, error) {
	if err := ctx.Err(); err != nil {
		return ElementState{}, err
	}

	handle, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil || handle == nil {
		// Absence is a state, not a failure.
		return ElementState{}, nil
	}

	state := ElementState{Found: true}
	if visible, err := handle.IsVisible(); err == nil {
		state.Visible = visible
	}
	if enabled, err := handle.IsEnabled(); err == nil {
		state.Enabled = enabled
	}
	if class, err := handle.GetAttribute("class"); err == nil {
		state.Class = class
	}

	return state, nil
}

func (s *Session) Evaluate(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.page.Evaluate(script)
	if err != nil {
		return nil, fmt.Errorf("evaluate script: %w", err)
	}
	return result, nil
}

func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

func (s *Session) FrameCount() int {
	return len(s.page.Frames())
}

func (s *Session) FrameContent(ctx context.Context, index int) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	frames := s.page.Frames()
	if index < 0 || index >= len(frames) {
		return "", "", fmt.Errorf("frame index %d out of range (%d frames)", index, len(frames))
	}

	frame := frames[index]
	content, err := frame.Content()
	if err != nil {
		return "", "", fmt.Errorf("read frame %d content: %w", index, err)
	}

	return content, frame.URL(), nil
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	}); err != nil {
		return fmt.Errorf("screenshot to %s: %w", path, err)
	}
	return nil
}
