// Package chunk partitions extracted pages into bounded segments, each
// small enough for one completion call.
// Boundaries are purely positional; chunks never overlap.
package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// Defaults for each strategy.
const (
	DefaultMaxWords  = 1500
	DefaultChunkSize = 6000
)

// Separator joins pages inside a chunk.
const Separator = "\n"

// Strategy names accepted by New.
const (
	StrategyPages = "pages"
	StrategyFixed = "fixed"
)

// New returns the chunker for strategy. size is a word budget for "pages"
// and a rune count for "fixed"; <= 0 selects the default.
func New(strategy string, size int) (core.Chunker, error) {
	switch strings.ToLower(strategy) {
	case "", StrategyPages:
		return NewPageChunker(size), nil
	case StrategyFixed:
		return NewFixedChunker(size), nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy %q (want %q or %q)", strategy, StrategyPages, StrategyFixed)
	}
}

// PageChunker packs whole pages into chunks under a word budget, using a
// simple whitespace tokenizer (words ≈ tokens).
type PageChunker struct {
	MaxWords int
}

// NewPageChunker creates a PageChunker; maxWords <= 0 selects 1500.
func NewPageChunker(maxWords int) *PageChunker {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &PageChunker{MaxWords: maxWords}
}

// Chunk starts a new chunk whenever adding the next page would exceed the
// budget. A single page above the budget becomes its own chunk.
func (c *PageChunker) Chunk(pages []string) []string {
	if len(pages) == 0 {
		return nil
	}

	var (
		chunks  []string
		current []string
		words   int
	)
	for _, page := range pages {
		n := len(strings.Fields(page))
		if words+n > c.MaxWords && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, Separator))
			current, words = nil, 0
		}
		current = append(current, page)
		words += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, Separator))
	}
	return chunks
}

// FixedChunker joins all pages and cuts the text into slices of Size runes.
type FixedChunker struct {
	Size int
}

// NewFixedChunker creates a FixedChunker; size <= 0 selects 6000.
func NewFixedChunker(size int) *FixedChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &FixedChunker{Size: size}
}

// Chunk never splits a multi-byte character; the last chunk may be short.
func (c *FixedChunker) Chunk(pages []string) []string {
	if len(pages) == 0 {
		return nil
	}
	text := strings.Join(pages, Separator)
	if text == "" {
		return []string{""}
	}

	var chunks []string
	for len(text) > 0 {
		end, count := 0, 0
		for end < len(text) && count < c.Size {
			_, w := utf8.DecodeRuneInString(text[end:])
			end += w
			count++
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	return chunks
}
