package testutil

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// KeywordEmbedder is a deterministic bag-of-words embedder. Texts sharing
// words end up close to each other, which is enough to exercise retrieval
// without a model.
type KeywordEmbedder struct {
	Dim int

	mu    sync.Mutex
	calls int
	texts []string
}

func NewKeywordEmbedder() *KeywordEmbedder {
	return &KeywordEmbedder{Dim: 256}
}

func (e *KeywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.record(texts...)
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = e.vector(t)
	}
	return vectors, nil
}

func (e *KeywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.record(text)
	return e.vector(text), nil
}

// Calls returns how many embedding requests were made.
func (e *KeywordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Texts returns every text passed to the embedder, in call order.
func (e *KeywordEmbedder) Texts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.texts...)
}

func (e *KeywordEmbedder) record(texts ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.texts = append(e.texts, texts...)
}

func (e *KeywordEmbedder) vector(text string) []float32 {
	v := make([]float32, e.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(e.Dim)]++
	}
	// keep the vector non-zero so cosine similarity stays defined
	v[e.Dim-1] += 0.01
	return v
}
