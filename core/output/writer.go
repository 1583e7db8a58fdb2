// Package output names and stores rendered reports. The destination may be
// a local directory or any URL scheme afs supports (file://, mem://, s3://,
// gs://).
package output

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	afsurl "github.com/viant/afs/url"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// Writer stores rendered output under BaseURL.
type Writer struct {
	BaseURL string
	fs      afs.Service
}

// New creates a Writer targeting dest. An empty dest means the current
// working directory; a plain path is made absolute.
func New(dest string) (*Writer, error) {
	if dest == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		dest = wd
	}
	if !strings.Contains(dest, "://") {
		abs, err := filepath.Abs(dest)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", dest, err)
		}
		dest = abs
	}
	return &Writer{BaseURL: dest, fs: afs.New()}, nil
}

// Write renders a and stores it as <name derived from source URL><ext>.
// It returns the destination URL.
func (w *Writer) Write(ctx context.Context, r core.Renderer, a *core.Analysis) (string, error) {
	data, err := r.Render(a)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", r.Extension(), err)
	}
	return w.WriteFile(ctx, ReportName(a.URL)+r.Extension(), data)
}

// WriteFile stores data as name under BaseURL.
func (w *Writer) WriteFile(ctx context.Context, name string, data []byte) (string, error) {
	dest := afsurl.Join(w.BaseURL, name)
	if err := w.fs.Upload(ctx, dest, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	return dest, nil
}

// ReportName converts a document URL into a flat file name without the
// document's own extension.
// Example: https://city.gov/docs/zoning.pdf -> city_gov_docs_zoning
func ReportName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if name := sanitize(rawURL); name != "" {
			return name
		}
		return "report"
	}

	p := strings.Trim(parsed.Path, "/")
	p = strings.TrimSuffix(p, path.Ext(p))

	parts := []string{sanitize(parsed.Host)}
	if p != "" {
		for _, seg := range strings.Split(p, "/") {
			parts = append(parts, sanitize(seg))
		}
	}
	return strings.Join(parts, "_")
}

// sanitize replaces non-alphanumeric characters with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
