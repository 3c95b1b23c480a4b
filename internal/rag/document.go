package rag

import (
	"sync"
	"time"

	"pdf-qa/internal/chromemdb"
	"pdf-qa/internal/models"
)

// Document is the per-session state: the extracted text, its chunks and the
// similarity index built from them. The three are replaced together.
type Document struct {
	mu        sync.RWMutex
	text      string
	chunks    []models.Chunk
	index     *chromemdb.Index
	updatedAt time.Time
}

// Snapshot is a consistent view of a Document.
type Snapshot struct {
	Text      string
	Chunks    []models.Chunk
	Index     *chromemdb.Index
	UpdatedAt time.Time
}

func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{Text: d.text, Chunks: d.chunks, Index: d.index, UpdatedAt: d.updatedAt}
}

// Replace installs new content. index may be nil, in which case questions
// are answered without document context.
func (d *Document) Replace(text string, chunks []models.Chunk, index *chromemdb.Index) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.chunks = chunks
	d.index = index
	d.updatedAt = time.Now()
}

// Ready reports whether the document holds text.
func (d *Document) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text != ""
}
