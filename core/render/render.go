package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// ForFormat returns the renderer for a format name: markdown, json, pdf or
// xlsx.
func ForFormat(name string) (core.Renderer, error) {
	switch strings.ToLower(name) {
	case "markdown", "md":
		return NewMarkdownRenderer(), nil
	case "json":
		return NewJSONRenderer(), nil
	case "pdf":
		return NewPDFRenderer(), nil
	case "xlsx", "excel":
		return NewXLSXRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}
