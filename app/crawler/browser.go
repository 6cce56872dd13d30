package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Browser wraps a single headless Chrome instance shared by the dynamic-page
// collectors and the render-to-PDF download path. Pages are created per call
// and must be closed by the caller.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowser launches headless Chrome and connects to it.
func NewBrowser(headless bool) (*Browser, error) {
	l := launcher.New().Headless(headless)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Browser{launcher: l, browser: b}, nil
}

// OpenPage navigates to a URL and waits for the load event plus a short idle
// window, the closest equivalent to a networkidle wait.
func (b *Browser) OpenPage(ctx context.Context, pageURL string, timeout time.Duration) (*rod.Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page = page.Context(ctx).Timeout(timeout)

	if err := page.Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to load %s: %w", pageURL, err)
	}
	// Best effort, dynamic tables keep fetching after onload.
	_ = page.WaitIdle(10 * time.Second)

	return page, nil
}

// Close shuts down the browser and its launcher.
func (b *Browser) Close() {
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
}
