package crawl

import (
	"net/url"
	"path"
	"strings"
)

// staticExtensions are never crawled as pages.
var staticExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true, ".bmp": true,
	".css": true, ".js": true, ".mjs": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp4": true, ".webm": true, ".mp3": true, ".wav": true,
	".zip": true, ".tar": true, ".gz": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

// rankTerms weight words that mark a zoning code in a link's URL or text.
var rankTerms = map[string]int{
	"zoning":      5,
	"ordinance":   3,
	"development": 2,
	"land use":    2,
	"code":        1,
	"chapter":     1,
}

// IsSameDomain checks if the given URL belongs to the specified domain.
func IsSameDomain(rawURL string, domain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Host == domain
}

// IsStaticAsset checks if a URL points to a static asset (image, CSS, JS, etc.).
func IsStaticAsset(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return staticExtensions[strings.ToLower(path.Ext(parsed.Path))]
}

// IsPDF reports whether the URL path ends in .pdf.
func IsPDF(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.ToLower(path.Ext(parsed.Path)) == ".pdf"
}

// Rank scores a candidate by the zoning terms in its URL and link text.
func Rank(rawURL, text string) int {
	hay := strings.ToLower(text + " " + rawURL)
	if u, err := url.PathUnescape(hay); err == nil {
		hay = u
	}
	hay = strings.NewReplacer("_", " ", "-", " ").Replace(hay)

	score := 0
	for term, w := range rankTerms {
		if strings.Contains(hay, term) {
			score += w
		}
	}
	return score
}

// NormalizeURL strips fragments and trailing slashes for deduplication.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String()
}
