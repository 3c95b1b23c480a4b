package chunker

import (
	"errors"
	"fmt"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"

	"github.com/tmc/langchaingo/textsplitter"
)

// boundaries are tried in order; the first tier with a match inside the
// search range decides the cut.
var boundaries = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{" "},
}

// Window splits text into windows of at most Size characters. Adjacent
// windows share exactly Overlap characters. Cuts prefer paragraph, line,
// sentence and word boundaries, in that order, and fall back to a hard cut.
type Window struct {
	Size    int
	Overlap int
}

var _ textsplitter.TextSplitter = Window{}

func (w Window) validate() error {
	if w.Size <= 0 {
		return errors.New("chunk size must be positive")
	}
	if w.Overlap < 0 || w.Overlap >= w.Size {
		return fmt.Errorf("chunk overlap %d must be in [0, %d)", w.Overlap, w.Size)
	}
	return nil
}

func (w Window) SplitText(text string) ([]string, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}

	r := []rune(text)
	n := len(r)
	if n == 0 {
		return nil, nil
	}
	if n <= w.Size {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for {
		end := start + w.Size
		if end >= n {
			chunks = append(chunks, string(r[start:]))
			break
		}
		cut := w.cut(r, start, end)
		chunks = append(chunks, string(r[start:cut]))
		start = cut - w.Overlap
	}
	return chunks, nil
}

// cut picks the end of the window starting at start. The cut never falls
// before start+Overlap+1, so every window advances.
func (w Window) cut(r []rune, start, end int) int {
	lo := start + max(w.Overlap+1, w.Size/2)
	if lo > end {
		lo = end
	}
	for _, tier := range boundaries {
		best := -1
		for _, sep := range tier {
			if p := lastBoundary(r, []rune(sep), lo, end); p > best {
				best = p
			}
		}
		if best >= 0 {
			return best
		}
	}
	return end
}

// lastBoundary returns the largest p in [lo, end] such that sep ends at p.
func lastBoundary(r, sep []rune, lo, end int) int {
	for p := end; p >= lo; p-- {
		if p < len(sep) {
			break
		}
		if runesEqual(r[p-len(sep):p], sep) {
			return p
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

// New returns the splitter for a chunking strategy.
func New(strategy string, size, overlap int) (textsplitter.TextSplitter, error) {
	switch strategy {
	case config.StrategyWindow, "":
		w := Window{Size: size, Overlap: overlap}
		if err := w.validate(); err != nil {
			return nil, err
		}
		return w, nil
	case config.StrategyRecursive:
		if size <= 0 || overlap < 0 || overlap >= size {
			return nil, fmt.Errorf("invalid chunk size %d / overlap %d", size, overlap)
		}
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		), nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy: %s", strategy)
	}
}

// Split runs splitter over text and numbers the resulting chunks.
func Split(splitter textsplitter.TextSplitter, text string) ([]models.Chunk, error) {
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{Index: len(chunks), Content: p})
	}
	return chunks, nil
}
