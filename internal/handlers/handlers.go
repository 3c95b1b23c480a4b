package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pdf-qa/internal/metrics"
	"pdf-qa/internal/models"

	"github.com/gin-gonic/gin"
)

// Service is the question-answering pipeline behind the HTTP API.
type Service interface {
	Ingest(ctx context.Context, sessionID string, data []byte) (*models.IngestResponse, error)
	Ask(ctx context.Context, sessionID, query string) (*models.AskResponse, error)
}

type Handler struct {
	service        Service
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

func NewHandler(service Service, m *metrics.Metrics, maxUploadBytes int64) *Handler {
	return &Handler{service: service, metrics: m, maxUploadBytes: maxUploadBytes}
}

// NewRouter wires the backend routes.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	router.POST("/process/", h.Process)
	router.POST("/ask/", h.Ask)
	router.GET("/health", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	return router
}

// sessionID reads the caller's session from the header, then the query string.
func sessionID(c *gin.Context) string {
	if id := c.GetHeader(models.SessionHeader); id != "" {
		return id
	}
	return c.Query(models.SessionParam)
}

func detail(c *gin.Context, status int, d any) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Detail: d})
}

// Process handles POST /process/ with a multipart "file" field holding a PDF.
func (h *Handler) Process(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			detail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds the %d byte upload limit", h.maxUploadBytes))
			return
		}
		detail(c, http.StatusUnprocessableEntity, "multipart field 'file' is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		detail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to process PDF: %v", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		detail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to process PDF: %v", err))
		return
	}

	id := sessionID(c)
	if id == "" {
		id = c.PostForm(models.SessionParam)
	}

	resp, err := h.service.Ingest(c.Request.Context(), id, data)
	if err != nil {
		_ = c.Error(err)
		detail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to process PDF: %v", err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ask handles POST /ask/?query=... The parameter must be present but may
// be empty.
func (h *Handler) Ask(c *gin.Context) {
	query, ok := c.GetQuery("query")
	if !ok {
		detail(c, http.StatusUnprocessableEntity, "query parameter 'query' is required")
		return
	}

	resp, err := h.service.Ask(c.Request.Context(), sessionID(c), query)
	if err != nil {
		_ = c.Error(err)
		h.askError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) askError(c *gin.Context, err error) {
	var notReady *models.NotReadyError
	var completionErr *models.CompletionError

	switch {
	case errors.As(err, &notReady):
		detail(c, http.StatusBadRequest, models.NotReadyMessage)
	case errors.As(err, &completionErr):
		detail(c, completionErr.HTTPStatus(), upstreamDetail(completionErr))
	default:
		detail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to answer question: %v", err))
	}
}

// upstreamDetail relays the upstream body as JSON when it is JSON.
func upstreamDetail(e *models.CompletionError) any {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return e.Error()
	}
	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}
	return body
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
