package chromemdb

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"
	"strconv"

	"pdf-qa/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

const (
	collectionName = "document_chunks"
	chunkIndexKey  = "chunk_index"
)

// Index is an in-memory similarity index over the chunks of one document.
// It is immutable once built.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embed      chromem.EmbeddingFunc
}

// Build embeds nothing itself: vectors[i] must be the embedding of chunks[i].
// embed is used to turn query text into a vector and must be the same model
// that produced vectors.
func Build(ctx context.Context, chunks []models.Chunk, vectors [][]float32, embed chromem.EmbeddingFunc) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to index")
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("got %d chunks but %d embeddings", len(chunks), len(vectors))
	}
	if embed == nil {
		return nil, fmt.Errorf("query embedding function is required")
	}

	db := chromem.NewDB()
	c, err := db.CreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %v", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(chunk.Index),
			Content:   chunk.Content,
			Metadata:  map[string]string{chunkIndexKey: strconv.Itoa(chunk.Index)},
			Embedding: vectors[i],
		}
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents: %v", err)
	}

	log.Debug().Int("documents", c.Count()).Msg("Built similarity index")
	return &Index{db: db, collection: c, embed: embed}, nil
}

// Count returns the number of indexed chunks.
func (i *Index) Count() int {
	return i.collection.Count()
}

// Search returns the k chunks most similar to query, most similar first.
// Chunks with equal similarity keep document order. k is clamped to the
// number of indexed chunks. An empty query is embedded like any other text.
func (i *Index) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	n := i.collection.Count()
	if k <= 0 || n == 0 {
		return nil, nil
	}

	// chromem orders ties arbitrarily, so rank every document here
	opts := chromem.QueryOptions{QueryText: query, NResults: n}
	if query == "" {
		// chromem refuses empty query text
		vec, err := i.embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %v", err)
		}
		opts.QueryEmbedding = normalize(vec)
	}
	results, err := i.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	scored := make([]models.ScoredChunk, 0, len(results))
	for _, res := range results {
		idx, err := strconv.Atoi(res.Metadata[chunkIndexKey])
		if err != nil {
			return nil, fmt.Errorf("document %s has no chunk index: %v", res.ID, err)
		}
		scored = append(scored, models.ScoredChunk{
			Chunk:      models.Chunk{Index: idx, Content: res.Content},
			Similarity: res.Similarity,
		})
	}

	slices.SortStableFunc(scored, func(a, b models.ScoredChunk) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for j, x := range v {
		out[j] = x / norm
	}
	return out
}
