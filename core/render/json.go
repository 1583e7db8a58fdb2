package render

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// JSONRenderer produces {"summary", "scores", ...} output.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

func (r *JSONRenderer) Render(a *core.Analysis) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("nil analysis")
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}
