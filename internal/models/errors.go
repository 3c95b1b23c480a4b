package models

import (
	"fmt"
	"net/http"
)

// ExtractionError reports an upload that is not a readable PDF or holds no text.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdf extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "pdf extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NotReadyError is returned by ask when the session has no extracted text.
type NotReadyError struct {
	SessionID string
}

func (e *NotReadyError) Error() string {
	return NotReadyMessage
}

// IndexingError wraps failures of chunking, embedding or index construction.
type IndexingError struct {
	Stage string
	Err   error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing failed at %s: %v", e.Stage, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }

// CompletionError carries the upstream status and body of a failed completion call.
type CompletionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *CompletionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion failed (status %d): %s", e.StatusCode, e.Body)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// HTTPStatus is the status to relay to callers. Upstream statuses outside
// the error range become 502.
func (e *CompletionError) HTTPStatus() int {
	if e.StatusCode < http.StatusBadRequest || e.StatusCode > 599 {
		return http.StatusBadGateway
	}
	return e.StatusCode
}
