// Package browser provides the live-page session the exporter drives:
// navigation, scrolling, content-readiness polling and markup capture over
// a headless (or attached) Chromium instance.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/jonathan/chat-exporter/internal/scan"
)

const (
	// DefaultContentSelector marks conversation content having rendered.
	DefaultContentSelector = "article"
	// DefaultSpinnerSelector marks the host's loading indicator.
	DefaultSpinnerSelector = ".text-token-text-tertiary > svg.animate-spin"

	// DefaultMaxPolls bounds the content-readiness loop.
	DefaultMaxPolls = 30
	// DefaultPollInterval is the delay between readiness checks.
	DefaultPollInterval = 500 * time.Millisecond
	// readySettle is an extra wait after content appears; late hydration
	// on the host page still mutates the DOM briefly after the spinner
	// goes away.
	readySettle = time.Second
)

// ErrContentNotReady is returned when the readiness poll budget runs out.
// Callers may still capture and convert the page; conversion degrades
// gracefully on partial content.
var ErrContentNotReady = errors.New("page content not ready within poll budget")

// Options configures a browser session.
type Options struct {
	// RemoteURL attaches to an already-running browser over the DevTools
	// websocket instead of launching one. An attached browser carries the
	// user's login session.
	RemoteURL string
	// UserDataDir points a launched browser at an existing profile.
	UserDataDir string
	// Headless controls the launched browser's mode.
	Headless bool

	ContentSelector string
	SpinnerSelector string
	MaxPolls        int
	PollInterval    time.Duration
}

// DefaultOptions returns a headless session with the host's markers.
func DefaultOptions() Options {
	return Options{
		Headless:        true,
		ContentSelector: DefaultContentSelector,
		SpinnerSelector: DefaultSpinnerSelector,
		MaxPolls:        DefaultMaxPolls,
		PollInterval:    DefaultPollInterval,
	}
}

// Session is a live Chromium tab. It implements the orchestrator's Browser
// and the scanner's Scroller interfaces.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	opts    Options
	log     zerolog.Logger
}

// NewSession launches (or attaches to) a browser. Requires Chrome/Chromium
// on the system unless RemoteURL is set.
func NewSession(parent context.Context, opts Options, log zerolog.Logger) (*Session, error) {
	if opts.ContentSelector == "" {
		opts.ContentSelector = DefaultContentSelector
	}
	if opts.SpinnerSelector == "" {
		opts.SpinnerSelector = DefaultSpinnerSelector
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = DefaultMaxPolls
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(parent, opts.RemoteURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if opts.UserDataDir != "" {
			execOpts = append(execOpts, chromedp.UserDataDir(opts.UserDataDir))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(parent, execOpts...)
	}

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		opts:    opts,
		log:     log,
	}

	// Start the browser now so startup failures surface here, not on the
	// first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser startup failed: %w", err)
	}
	return s, nil
}

// Close shuts the session down.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// Navigate loads the URL and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Debug().Str("url", url).Msg("navigating")
	if err := chromedp.Run(s.ctx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// CurrentURL returns the tab's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var location string
	if err := chromedp.Run(s.ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return location, nil
}

// OuterHTML captures the full document markup.
func (s *Session) OuterHTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to capture document: %w", err)
	}
	return html, nil
}

// scrollScript finds the scrollable ancestor of the first conversation
// link (falling back to the document) and scrolls it to the bottom,
// returning its scroll height so the caller can detect growth.
var scrollScript = fmt.Sprintf(`(() => {
	const link = document.querySelector(%q);
	let el = link ? link.parentElement : null;
	while (el && el !== document.body) {
		const style = window.getComputedStyle(el);
		if ((style.overflowY === "auto" || style.overflowY === "scroll") && el.scrollHeight > el.clientHeight) {
			break;
		}
		el = el.parentElement;
	}
	const target = (el && el !== document.body) ? el : (document.scrollingElement || document.documentElement);
	target.scrollTo(0, target.scrollHeight);
	return target.scrollHeight;
})()`, scan.ConversationLinkSelector)

// ScrollToBottom implements scan.Scroller.
func (s *Session) ScrollToBottom(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var height float64
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(scrollScript, &height)); err != nil {
		return 0, fmt.Errorf("scroll failed: %w", err)
	}
	return int64(height), nil
}

// WaitReady polls until the content marker is present and the loading
// spinner is absent, bounded by the poll budget. Exhausting the budget
// returns ErrContentNotReady rather than blocking forever.
func (s *Session) WaitReady(ctx context.Context) error {
	readyScript := fmt.Sprintf(
		`document.querySelectorAll(%q).length > 0 && !document.querySelector(%q)`,
		s.opts.ContentSelector, s.opts.SpinnerSelector,
	)

	for i := 0; i < s.opts.MaxPolls; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var ready bool
		if err := chromedp.Run(s.ctx, chromedp.Evaluate(readyScript, &ready)); err != nil {
			return fmt.Errorf("readiness check failed: %w", err)
		}
		if ready {
			return chromedp.Run(s.ctx, chromedp.Sleep(readySettle))
		}
		if err := chromedp.Run(s.ctx, chromedp.Sleep(s.opts.PollInterval)); err != nil {
			return err
		}
	}
	return ErrContentNotReady
}
