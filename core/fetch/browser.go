package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

const (
	defaultBrowserTimeout = 45 * time.Second
	defaultSettle         = 2 * time.Second
)

// BrowserOption configures a BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithBrowserTimeout bounds the headless browser session.
func WithBrowserTimeout(d time.Duration) BrowserOption {
	return func(b *BrowserFetcher) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithSettle sets how long the page may run scripts (bot checks, redirects)
// before cookies are collected.
func WithSettle(d time.Duration) BrowserOption {
	return func(b *BrowserFetcher) { b.settle = d }
}

// WithExecPath points chromedp at a specific Chrome binary.
func WithExecPath(path string) BrowserOption {
	return func(b *BrowserFetcher) {
		if path != "" {
			b.allocOpts = append(b.allocOpts, chromedp.ExecPath(path))
		}
	}
}

// BrowserFetcher opens the document's site in headless Chrome to obtain the
// session cookies some servers require, then downloads the document with
// the HTTPFetcher using those cookies.
type BrowserFetcher struct {
	http      *HTTPFetcher
	timeout   time.Duration
	settle    time.Duration
	allocOpts []chromedp.ExecAllocatorOption
	logger    *slog.Logger

	// open establishes the browser session; replaced in tests.
	open func(ctx context.Context, rawURL string) (*session, error)
}

// NewBrowser wraps an HTTPFetcher with a browser session step.
func NewBrowser(httpFetcher *HTTPFetcher, opts ...BrowserOption) *BrowserFetcher {
	if httpFetcher == nil {
		httpFetcher = New()
	}
	b := &BrowserFetcher{
		http:      httpFetcher,
		timeout:   defaultBrowserTimeout,
		settle:    defaultSettle,
		allocOpts: append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...),
		logger:    httpFetcher.logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.open = b.chromeSession
	return b
}

// Fetch establishes a browser session for url and then downloads it.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*core.Document, error) {
	sess, err := b.open(ctx, rawURL)
	if err != nil {
		return nil, core.FetchError("browser session failed", err)
	}
	b.logger.Info("fetch.browser_session", "url", rawURL, "cookies", len(sess.Cookies))
	return b.http.download(ctx, rawURL, sess)
}

// sessionPages returns the pages a browser session visits for rawURL: the
// site root, then the document itself.
func sessionPages(rawURL string) ([]string, error) {
	target, err := url.Parse(rawURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}
	landing := target.Scheme + "://" + target.Host + "/"
	if rawURL == landing {
		return []string{landing}, nil
	}
	return []string{landing, rawURL}, nil
}

// chromeSession visits the site root and the document URL so redirects and
// bot checks on either path can set cookies. Both browser contexts are
// cancelled on every return path, which shuts the browser process down.
func (b *BrowserFetcher) chromeSession(ctx context.Context, rawURL string) (*session, error) {
	pages, err := sessionPages(rawURL)
	if err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, b.timeout)
	defer cancelRun()

	if err := chromedp.Run(runCtx, chromedp.Navigate(pages[0]), chromedp.Sleep(b.settle)); err != nil {
		return nil, fmt.Errorf("headless browser at %s: %w", pages[0], err)
	}
	for _, page := range pages[1:] {
		// Chrome aborts navigations that end in a download; cookies set
		// along the redirect chain are kept regardless.
		if err := chromedp.Run(runCtx, chromedp.Navigate(page), chromedp.Sleep(b.settle)); err != nil {
			b.logger.Debug("fetch.browser_navigate_failed", "url", page, "error", err)
		}
	}

	var (
		userAgent string
		cookies   []*network.Cookie
	)
	err = chromedp.Run(runCtx,
		chromedp.Evaluate(`navigator.userAgent`, &userAgent),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs(pages).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("headless browser at %s: %w", rawURL, err)
	}

	sess := &session{UserAgent: userAgent}
	for _, c := range cookies {
		sess.Cookies = append(sess.Cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return sess, nil
}
