// Package fetch implements the Fetcher interface.
// It downloads a remote document into a temp file with a hard size limit,
// so an untrusted server cannot fill the disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "ordinancepipe/1.0 (+https://github.com/gaurav-prasanna/ordinancepipe)"

	// DefaultMaxBytes is the largest document accepted (40 MB).
	DefaultMaxBytes int64 = 40 << 20
)

// ErrTooLarge is wrapped into the FetchError when the size limit is hit.
var ErrTooLarge = errors.New("document exceeds size limit")

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout bounds the whole transfer.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithTempDir sets where downloaded documents are stored.
func WithTempDir(dir string) Option {
	return func(f *HTTPFetcher) { f.tempDir = dir }
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// HTTPFetcher downloads documents over plain HTTP.
type HTTPFetcher struct {
	client    *http.Client
	maxBytes  int64
	tempDir   string
	userAgent string
	logger    *slog.Logger
}

// New creates an HTTPFetcher with a sensible timeout and the 40 MB limit.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		maxBytes:  DefaultMaxBytes,
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MaxBytes returns the configured size limit.
func (f *HTTPFetcher) MaxBytes() int64 {
	return f.maxBytes
}

// Fetch downloads url into a temp file. The caller owns the returned
// Document and must Release it.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.Document, error) {
	return f.download(ctx, url, nil)
}

// session carries state established outside the plain transfer, such as
// cookies collected by a headless browser.
type session struct {
	Cookies   []*http.Cookie
	UserAgent string
}

func (f *HTTPFetcher) download(ctx context.Context, url string, sess *session) (*core.Document, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.FetchError("failed to download PDF", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/pdf,text/html;q=0.8,*/*;q=0.5")
	if sess != nil {
		if sess.UserAgent != "" {
			req.Header.Set("User-Agent", sess.UserAgent)
		}
		for _, c := range sess.Cookies {
			req.AddCookie(c)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, core.FetchError("failed to download PDF", fmt.Errorf("fetching %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.FetchError("failed to download PDF",
			fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url))
	}

	// Reject before transferring anything when the server tells us the size.
	if resp.ContentLength > f.maxBytes {
		return nil, core.FetchError("failed to download PDF",
			fmt.Errorf("%w: %s advertises %d bytes, limit is %d", ErrTooLarge, url, resp.ContentLength, f.maxBytes))
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	tmp, err := os.CreateTemp(f.tempDir, "ordinance-*"+extensionFor(contentType))
	if err != nil {
		return nil, core.FetchError("failed to download PDF", fmt.Errorf("creating temp file: %w", err))
	}

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, f.maxBytes+1))
	closeErr := tmp.Close()
	if err == nil && n > f.maxBytes {
		err = fmt.Errorf("%w: %s exceeded %d bytes mid-transfer", ErrTooLarge, url, f.maxBytes)
	}
	if err == nil && closeErr != nil {
		err = fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err != nil {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			f.logger.Warn("fetch.cleanup_error", "path", tmp.Name(), "error", rmErr)
		}
		return nil, core.FetchError("failed to download PDF", err)
	}

	f.logger.Info("fetch.ok",
		"url", url,
		"bytes", n,
		"content_type", contentType,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return core.NewDocument(url, tmp.Name(), n, contentType), nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mt
}

func extensionFor(contentType string) string {
	switch {
	case contentType == "text/html" || contentType == "application/xhtml+xml":
		return ".html"
	case strings.HasPrefix(contentType, "text/"):
		return ".txt"
	default:
		return ".pdf"
	}
}
