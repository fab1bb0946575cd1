package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
)

const waitSelectorTimeout = 5 * time.Second

type ChromeOptions struct {
	ExecPath    string
	UserAgent   string
	Headless    bool
	PageTimeout time.Duration
	RenderWait  time.Duration
}

// Chrome renders pages in tabs of one headless Chrome process.
type Chrome struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	pageTimeout   time.Duration
	renderWait    time.Duration
	closed        atomic.Bool
	closeOnce     sync.Once
}

var _ Browser = (*Chrome)(nil)

func ChromeLauncher(opts ChromeOptions) Launcher {
	return func(ctx context.Context) (Browser, error) {
		return LaunchChrome(ctx, opts)
	}
}

func LaunchChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.WindowSize(1366, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	slog.Debug("Browser launched", "headless", opts.Headless, "exec_path", opts.ExecPath)

	return &Chrome{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		pageTimeout:   opts.PageTimeout,
		renderWait:    opts.RenderWait,
	}, nil
}

func (c *Chrome) Render(ctx context.Context, pageURL string, waitSelector string) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}

	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	defer cancelTab()

	timeout := c.pageTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancelRun := context.WithTimeout(tabCtx, timeout)
	defer cancelRun()

	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("failed to load page: %w", err)
	}

	if waitSelector != "" {
		waitCtx, cancelWait := context.WithTimeout(runCtx, waitSelectorTimeout)
		if err := chromedp.Run(waitCtx, chromedp.WaitVisible(waitSelector, chromedp.ByQuery)); err != nil {
			slog.Debug("Wait selector not found", "url", pageURL, "selector", waitSelector, "error", err)
		}
		cancelWait()
	}

	var html string
	actions := []chromedp.Action{}
	if c.renderWait > 0 {
		actions = append(actions, chromedp.Sleep(c.renderWait))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}

	return html, nil
}

func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.browserCancel()
		c.allocCancel()
		slog.Debug("Browser closed")
	})
	return nil
}
