package rag

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"pdf-qa/internal/chromemdb"
	"pdf-qa/internal/chunker"
	"pdf-qa/internal/config"
	"pdf-qa/internal/embedding"
	"pdf-qa/internal/llmservice"
	"pdf-qa/internal/metrics"
	"pdf-qa/internal/models"
	"pdf-qa/internal/parser"
	"pdf-qa/internal/session"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/textsplitter"
)

type RAG struct {
	sessions  *session.Store[*Document]
	splitter  textsplitter.TextSplitter
	embedder  embeddings.Embedder
	completer llmservice.Completer
	metrics   *metrics.Metrics
	cfg       *config.Config
}

func NewRAG(cfg *config.Config, splitter textsplitter.TextSplitter, embedder embeddings.Embedder, completer llmservice.Completer, m *metrics.Metrics) *RAG {
	if m == nil {
		m = metrics.New()
	}
	r := &RAG{
		splitter:  splitter,
		embedder:  embedder,
		completer: completer,
		metrics:   m,
		cfg:       cfg,
	}
	r.sessions = session.NewStore(cfg.Session.MaxSessions, cfg.Session.TTL,
		func(id string) *Document {
			m.ActiveSessions.Inc()
			log.Debug().Str("session_id", id).Msg("Created document session")
			return &Document{}
		},
		func(id string, _ *Document) {
			m.ActiveSessions.Dec()
			log.Info().Str("session_id", id).Msg("Document session expired")
		},
	)
	return r
}

// SessionID maps an empty identifier to the shared default session.
func SessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.DefaultSessionID
	}
	return id
}

// Session returns the document of a session, creating an empty one if needed.
func (r *RAG) Session(id string) *Document {
	doc, _ := r.sessions.GetOrCreate(SessionID(id))
	return doc
}

// Ingest extracts, chunks, embeds and indexes a PDF for a session. The
// session's previous document stays in place unless every step succeeds.
func (r *RAG) Ingest(ctx context.Context, sessionID string, data []byte) (*models.IngestResponse, error) {
	id := SessionID(sessionID)
	logger := log.With().Str("session_id", id).Logger()

	resp, err := r.ingest(ctx, id, data)
	if err != nil {
		r.metrics.IngestTotal.WithLabelValues(metrics.StatusError).Inc()
		logger.Error().Err(err).Msg("Failed to process PDF")
		return nil, err
	}
	r.metrics.IngestTotal.WithLabelValues(metrics.StatusOK).Inc()
	logger.Info().Int("chunks", resp.Chunks).Msg("PDF processed")
	return resp, nil
}

func (r *RAG) ingest(ctx context.Context, id string, data []byte) (*models.IngestResponse, error) {
	start := time.Now()
	extractCtx, cancel := context.WithTimeout(ctx, r.cfg.RAG.ExtractionTimeout)
	text, err := parser.ExtractTextContext(extractCtx, data)
	cancel()
	r.metrics.ObserveStage(metrics.StageExtract, start)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("session_id", id).Int("chars", len(text)).Msg("Extracted text")

	start = time.Now()
	chunks, err := chunker.Split(r.splitter, text)
	r.metrics.ObserveStage(metrics.StageSplit, start)
	if err != nil {
		return nil, &models.IndexingError{Stage: metrics.StageSplit, Err: err}
	}
	if len(chunks) == 0 {
		return nil, &models.IndexingError{Stage: metrics.StageSplit, Err: errors.New("no chunks produced")}
	}

	start = time.Now()
	embedCtx, cancel := context.WithTimeout(ctx, r.cfg.Embedding.Timeout)
	vectors, err := embedding.EmbedChunks(embedCtx, r.embedder, chunks)
	cancel()
	r.metrics.ObserveStage(metrics.StageEmbed, start)
	if err != nil {
		return nil, &models.IndexingError{Stage: metrics.StageEmbed, Err: err}
	}

	start = time.Now()
	index, err := chromemdb.Build(ctx, chunks, vectors, r.embedder.EmbedQuery)
	r.metrics.ObserveStage(metrics.StageIndex, start)
	if err != nil {
		return nil, &models.IndexingError{Stage: metrics.StageIndex, Err: err}
	}

	r.Session(id).Replace(text, chunks, index)
	r.metrics.ChunksCreated.Add(float64(len(chunks)))

	return &models.IngestResponse{
		Message:   models.ProcessedMessage,
		SessionID: id,
		Chunks:    len(chunks),
	}, nil
}

// Ask answers a question from the session's document.
func (r *RAG) Ask(ctx context.Context, sessionID, query string) (*models.AskResponse, error) {
	id := SessionID(sessionID)

	answer, err := r.ask(ctx, id, query)
	if err != nil {
		var notReady *models.NotReadyError
		if errors.As(err, &notReady) {
			r.metrics.AskTotal.WithLabelValues(metrics.StatusNotReady).Inc()
		} else {
			r.metrics.AskTotal.WithLabelValues(metrics.StatusError).Inc()
			log.Error().Err(err).Str("session_id", id).Msg("Failed to answer question")
		}
		return nil, err
	}
	r.metrics.AskTotal.WithLabelValues(metrics.StatusOK).Inc()
	return &models.AskResponse{Answer: answer}, nil
}

func (r *RAG) ask(ctx context.Context, id, query string) (string, error) {
	doc, ok := r.sessions.Get(id)
	if !ok {
		return "", &models.NotReadyError{SessionID: id}
	}
	snap := doc.Snapshot()
	if snap.Text == "" {
		return "", &models.NotReadyError{SessionID: id}
	}

	contextText := ""
	if snap.Index == nil {
		log.Warn().Str("session_id", id).Msg("Document has no index, answering without context")
	} else {
		start := time.Now()
		searchCtx, cancel := context.WithTimeout(ctx, r.cfg.Embedding.Timeout)
		results, err := snap.Index.Search(searchCtx, query, r.cfg.RAG.TopK)
		cancel()
		r.metrics.ObserveStage(metrics.StageRetrieve, start)
		if err != nil {
			return "", &models.IndexingError{Stage: metrics.StageRetrieve, Err: err}
		}
		contextText = models.JoinContext(results)
		log.Debug().Str("session_id", id).Int("results", len(results)).Msg("Retrieved context")
	}

	prompt := models.BuildPrompt(contextText, query)

	start := time.Now()
	completeCtx, cancel := context.WithTimeout(ctx, r.cfg.Completion.Timeout)
	answer, err := r.completer.Complete(completeCtx, prompt)
	cancel()
	r.metrics.ObserveStage(metrics.StageComplete, start)
	if err != nil {
		var completionErr *models.CompletionError
		if !errors.As(err, &completionErr) {
			err = &models.CompletionError{StatusCode: http.StatusBadGateway, Err: err}
		}
		return "", err
	}
	return answer, nil
}
