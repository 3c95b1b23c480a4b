package models

import (
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("alpha\nbeta", "what is alpha?")
	assert.Equal(t, "Document Context:\nalpha\nbeta\n\nUser Query: what is alpha?\n\nAnswer:", got)
}

func TestBuildPromptEmptyContext(t *testing.T) {
	got := BuildPrompt("", "anything")
	assert.Equal(t, "Document Context:\n\n\nUser Query: anything\n\nAnswer:", got)
}

func TestJoinContextKeepsOrder(t *testing.T) {
	chunks := []ScoredChunk{
		{Chunk: Chunk{Index: 3, Content: "third"}, Similarity: 0.9},
		{Chunk: Chunk{Index: 0, Content: "first"}, Similarity: 0.5},
	}
	assert.Equal(t, "third\nfirst", JoinContext(chunks))
	assert.Empty(t, JoinContext(nil))
}

func TestCompletionErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   int
	}{
		{http.StatusTooManyRequests, http.StatusTooManyRequests},
		{http.StatusServiceUnavailable, http.StatusServiceUnavailable},
		{http.StatusBadRequest, http.StatusBadRequest},
		{0, http.StatusBadGateway},
		{http.StatusOK, http.StatusBadGateway},
		{http.StatusFound, http.StatusBadGateway},
		{600, http.StatusBadGateway},
	}
	for _, tt := range tests {
		e := &CompletionError{StatusCode: tt.status}
		assert.Equal(t, tt.want, e.HTTPStatus(), "status %d", tt.status)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	var err error = &IndexingError{Stage: "embed", Err: io.ErrUnexpectedEOF}
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "embed")

	err = &ExtractionError{Reason: "no text"}
	assert.Equal(t, "pdf extraction failed: no text", err.Error())

	err = &CompletionError{StatusCode: 503, Body: `{"error":"loading"}`}
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "loading")

	var notReady *NotReadyError
	assert.True(t, errors.As(error(&NotReadyError{SessionID: "s"}), &notReady))
	assert.Equal(t, NotReadyMessage, notReady.Error())
}
