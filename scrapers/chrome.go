package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeConfig holds the browser launch options
type ChromeConfig struct {
	Headless bool
	// ExecPath overrides the Chrome binary lookup
	ExecPath string
	// Timeout bounds every single browser action
	Timeout      time.Duration
	WindowWidth  int
	WindowHeight int
}

// ChromeSession drives a dedicated headless Chrome through chromedp
type ChromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	config      ChromeConfig
	logger      *slog.Logger
	closeOnce   sync.Once
}

// NewChromeFactory returns a Factory launching one browser per session
func NewChromeFactory(config ChromeConfig, logger *slog.Logger) Factory {
	return func(ctx context.Context) (Session, error) {
		return NewChromeSession(ctx, config, logger)
	}
}

// NewChromeSession launches a browser. Its lifetime is bound to Close, not to ctx.
func NewChromeSession(ctx context.Context, config ChromeConfig, logger *slog.Logger) (*ChromeSession, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "chrome")
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.WindowWidth == 0 || config.WindowHeight == 0 {
		config.WindowWidth, config.WindowHeight = 1920, 1080
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(config.WindowWidth, config.WindowHeight),
	)
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}

	if config.Headless {
		logger.Debug("launching browser", "mode", "headless")
	} else {
		logger.Debug("launching browser", "mode", "visible")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	s := &ChromeSession{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		config:      config,
		logger:      logger,
	}

	if err := s.start(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	// confirmation dialogs (e.g. "leave page?") are accepted automatically
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			s.logger.Debug("accepting dialog", "message", e.Message)
			go chromedp.Run(s.ctx, page.HandleJavaScriptDialog(true))
		}
	})

	return s, nil
}

// start launches the browser process. The process lives as long as the
// context of the first Run, so it must be the browser context itself and
// never one derived with a timeout.
func (s *ChromeSession) start(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.cancel)
	err := chromedp.Run(s.ctx)
	if !stop() {
		return ctx.Err()
	}
	return err
}

// run executes actions bounded by the per-action timeout and the caller's ctx
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.config.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *ChromeSession) Open(ctx context.Context, url string) error {
	if err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *ChromeSession) Click(ctx context.Context, sel string) error {
	if err := s.run(ctx,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		return fmt.Errorf("failed to click %s: %w", sel, err)
	}
	return nil
}

func (s *ChromeSession) Type(ctx context.Context, sel, text string) error {
	if err := s.run(ctx,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to type into %s: %w", sel, err)
	}
	return nil
}

func (s *ChromeSession) Text(ctx context.Context, sel string) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Text(sel, &text, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", sel, err)
	}
	return text, nil
}

func (s *ChromeSession) Exists(ctx context.Context, sel string) (bool, error) {
	quoted, err := json.Marshal(sel)
	if err != nil {
		return false, err
	}
	var found bool
	if err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%s) !== null`, quoted), &found)); err != nil {
		return false, fmt.Errorf("failed to query %s: %w", sel, err)
	}
	return found, nil
}

func (s *ChromeSession) Eval(ctx context.Context, script string, out any) error {
	if err := s.run(ctx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("failed to evaluate script: %w", err)
	}
	return nil
}

func (s *ChromeSession) HTML(ctx context.Context, sel string) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML(sel, &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read html of %s: %w", sel, err)
	}
	return html, nil
}

func (s *ChromeSession) URL(ctx context.Context) (string, error) {
	var u string
	if err := s.run(ctx, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return u, nil
}

func (s *ChromeSession) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
				SameSite: c.SameSite.String(),
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	return out, nil
}

func (s *ChromeSession) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		if c.Expires > 0 {
			sec := int64(c.Expires)
			expires := cdp.TimeSinceEpoch(time.Unix(sec, 0))
			p.Expires = &expires
		}
		params = append(params, p)
	}

	if err := s.run(ctx, network.SetCookies(params)); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

func (s *ChromeSession) SetFiles(ctx context.Context, sel string, paths []string) error {
	if err := s.run(ctx, chromedp.SetUploadFiles(sel, paths, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to attach files to %s: %w", sel, err)
	}
	return nil
}

func (s *ChromeSession) SetWindowSize(ctx context.Context, width, height int) error {
	if err := s.run(ctx, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		return fmt.Errorf("failed to resize window: %w", err)
	}
	return nil
}

func (s *ChromeSession) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *ChromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.allocCancel()
	})
	return nil
}
