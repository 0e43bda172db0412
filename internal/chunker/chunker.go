// Package chunker splits documents into overlapping, size-bounded windows.
package chunker

import (
	"strings"
	"unicode"

	"github.com/xxxsen/docqa/internal/model"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Break levels in order of preference. Within a level the latest break
// that fits the window wins.
var breakLevels = [][]string{
	{"\n\n"},
	{"\n", ". ", "! ", "? ", "。", "!", "?"},
}

type Chunker struct {
	size    int
	overlap int
}

type Option func(*Chunker)

// WithChunkSize sets the maximum chunk length in runes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets how many runes consecutive chunks share.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks every page of every document. Ordinals count per document
// across pages; pdf chunks also carry their 1-based page number.
func (c *Chunker) Split(docs []model.Document) []model.Chunk {
	var chunks []model.Chunk
	for _, doc := range docs {
		ordinal := 0
		for i, page := range doc.Pages {
			for _, piece := range c.SplitText(page) {
				meta := model.ChunkMetadata{
					Source:  doc.Source,
					Type:    doc.Type,
					Ordinal: ordinal,
				}
				if doc.Type == model.DocumentTypePDF {
					meta.Page = i + 1
				}
				chunks = append(chunks, model.Chunk{Content: piece, Metadata: meta})
				ordinal++
			}
		}
	}
	return chunks
}

// SplitText returns the windows for a single text. Text that fits in one
// window is returned unchanged. Consecutive windows share overlap runes,
// except where a whitespace-only window between them was dropped; only
// whitespace is lost there.
func (c *Chunker) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	r := []rune(text)
	n := len(r)
	if n <= c.size {
		return []string{text}
	}
	minLen := c.size / 2
	if minLen < c.overlap+1 {
		minLen = c.overlap + 1
	}
	var out []string
	start := 0
	for start < n {
		limit := start + c.size
		if limit >= n {
			if piece := string(r[start:]); strings.TrimSpace(piece) != "" {
				out = append(out, piece)
			}
			break
		}
		end := breakPoint(r, start+minLen, limit)
		if piece := string(r[start:end]); strings.TrimSpace(piece) != "" {
			out = append(out, piece)
		}
		start = c.nextStart(r, start, end)
	}
	return out
}

// breakPoint picks an end offset in [lo, hi].
func breakPoint(r []rune, lo, hi int) int {
	for _, level := range breakLevels {
		best := -1
		for _, sep := range level {
			if e := lastBreak(r, []rune(sep), lo, hi); e > best {
				best = e
			}
		}
		if best >= 0 {
			return best
		}
	}
	for e := hi; e > lo; e-- {
		if unicode.IsSpace(r[e-1]) {
			return e
		}
	}
	return hi
}

func lastBreak(r, sep []rune, lo, hi int) int {
	for e := hi; e >= lo && e >= len(sep); e-- {
		if runesEqual(r[e-len(sep):e], sep) {
			return e
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// nextStart backs off overlap runes from end, then moves further back to a
// word boundary if one is close.
func (c *Chunker) nextStart(r []rune, start, end int) int {
	next := end - c.overlap
	for i := next; i > next-c.overlap/2 && i > start+1; i-- {
		if unicode.IsSpace(r[i-1]) {
			return i
		}
	}
	return next
}
