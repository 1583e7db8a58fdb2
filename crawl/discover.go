// Package crawl resolves an HTML landing page to the ordinance document it
// links to. It walks same-site pages breadth first, collects links to PDF
// documents, and ranks them by how strongly they look like a zoning code.
package crawl

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

const defaultMaxPages = 20

// ErrNoDocument is returned when a landing page links to no PDF.
var ErrNoDocument = errors.New("no PDF document found")

// Candidate is a PDF link found during discovery.
type Candidate struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// Discoverer walks landing pages with a core.Fetcher.
type Discoverer struct {
	fetcher  core.Fetcher
	client   *http.Client
	maxPages int
	logger   *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithMaxPages bounds how many HTML pages are visited.
func WithMaxPages(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.maxPages = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Discoverer) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Discoverer that fetches pages through f.
func New(f core.Fetcher, opts ...Option) *Discoverer {
	d := &Discoverer{
		fetcher:  f,
		client:   &http.Client{Timeout: 15 * time.Second},
		maxPages: defaultMaxPages,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve returns rawURL when it already names a PDF, otherwise the best
// ranked PDF reachable from it.
func (d *Discoverer) Resolve(ctx context.Context, rawURL string) (string, error) {
	if IsPDF(rawURL) || d.servesPDF(ctx, rawURL) {
		return rawURL, nil
	}
	candidates, err := d.Discover(ctx, rawURL)
	if err != nil {
		return "", err
	}
	d.logger.Info("crawl.resolved", "landing", rawURL, "document", candidates[0].URL, "candidates", len(candidates))
	return candidates[0].URL, nil
}

// servesPDF reports whether a HEAD request for rawURL answers with a PDF
// content type. Any failure counts as "no"; the crawl then decides.
func (d *Discoverer) servesPDF(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return false
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return mediaType == "application/pdf"
}

// Discover returns ranked PDF candidates reachable from landingURL. Links are
// crawled first; the site's sitemap.xml is consulted when they yield nothing.
func (d *Discoverer) Discover(ctx context.Context, landingURL string) ([]Candidate, error) {
	parsed, err := url.Parse(landingURL)
	if err != nil {
		return nil, fmt.Errorf("parsing landing URL %q: %w", landingURL, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("landing URL %q has no host", landingURL)
	}

	found := make(map[string]Candidate)
	add := func(c Candidate) {
		c.URL = NormalizeURL(c.URL)
		c.Score = Rank(c.URL, c.Text)
		if prev, ok := found[c.URL]; ok && prev.Score >= c.Score {
			return
		}
		found[c.URL] = c
	}

	if err := d.discoverFromLinks(ctx, landingURL, parsed.Host, add); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		sitemap := fmt.Sprintf("%s://%s/sitemap.xml", parsed.Scheme, parsed.Host)
		urls, err := d.discoverFromSitemap(ctx, sitemap, parsed.Host)
		if err != nil {
			d.logger.Debug("crawl.sitemap_unavailable", "url", sitemap, "error", err)
		}
		for _, u := range urls {
			add(Candidate{URL: u})
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w at %s", ErrNoDocument, landingURL)
	}

	out := make([]Candidate, 0, len(found))
	for _, c := range found {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].URL < out[j].URL
	})
	return out, nil
}

// discoverFromLinks performs a bounded BFS over same-site HTML pages.
func (d *Discoverer) discoverFromLinks(ctx context.Context, startURL, domain string, add func(Candidate)) error {
	queue := NewQueue()
	queue.Add(NormalizeURL(startURL))

	pages := 0
	var firstErr error
	for queue.HasNext() && pages < d.maxPages {
		if err := ctx.Err(); err != nil {
			return err
		}
		current := queue.Next()
		pages++

		html, isPDF, err := d.page(ctx, current)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			d.logger.Debug("crawl.page_failed", "url", current, "error", err)
			continue
		}
		if isPDF {
			add(Candidate{URL: current})
			continue
		}

		links, err := extractLinks(html, current)
		if err != nil {
			continue
		}
		for _, l := range links {
			switch {
			case IsPDF(l.URL):
				add(Candidate{URL: l.URL, Text: l.Text})
			case IsSameDomain(l.URL, domain) && !IsStaticAsset(l.URL):
				queue.Add(NormalizeURL(l.URL))
			}
		}
	}

	// An unreachable landing page is an error; failures deeper in are not.
	if pages == 1 && firstErr != nil {
		return firstErr
	}
	return nil
}

// page fetches one URL and reports whether it turned out to be a PDF.
func (d *Discoverer) page(ctx context.Context, rawURL string) (string, bool, error) {
	doc, err := d.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", false, err
	}
	defer doc.Release()

	if doc.ContentType == "application/pdf" {
		return "", true, nil
	}
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", doc.Path, err)
	}
	if strings.HasPrefix(string(data), "%PDF-") {
		return "", true, nil
	}
	return string(data), false, nil
}

// sitemapURL holds a URL from a sitemap.xml.
type sitemapURL struct {
	Loc string `xml:"loc"`
}

// sitemapIndex is the root element of a sitemap.xml.
type sitemapIndex struct {
	URLs []sitemapURL `xml:"url"`
}

// discoverFromSitemap returns the same-site PDF URLs listed in sitemap.xml.
func (d *Discoverer) discoverFromSitemap(ctx context.Context, sitemapURL, domain string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	var sitemap sitemapIndex
	if err := xml.Unmarshal(body, &sitemap); err != nil {
		return nil, err
	}
	var urls []string
	for _, u := range sitemap.URLs {
		loc := strings.TrimSpace(u.Loc)
		if IsSameDomain(loc, domain) && IsPDF(loc) {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

type link struct {
	URL  string
	Text string
}

// extractLinks extracts all href values from <a> tags, resolving relative URLs.
func extractLinks(html string, baseURL string) ([]link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(baseURL)
	var links []link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}
		if resolved := resolveURL(href, base); resolved != "" {
			text := strings.Join(strings.Fields(s.Text()), " ")
			if title, ok := s.Attr("title"); ok && text == "" {
				text = title
			}
			links = append(links, link{URL: resolved, Text: text})
		}
	})
	return links, nil
}

// resolveURL resolves a potentially relative URL against a base.
func resolveURL(href string, base *url.URL) string {
	if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "#") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	return resolved.String()
}
