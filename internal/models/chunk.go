package models

import (
	"fmt"
	"strings"
)

// Chunk is a contiguous slice of the extracted document text
type Chunk struct {
	Index   int
	Content string
}

// ScoredChunk is a retrieved chunk with its similarity to the query
type ScoredChunk struct {
	Chunk
	Similarity float32
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat history
type Message struct {
	Role    Role
	Content string
}

type IngestResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Chunks    int    `json:"chunks,omitempty"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

type ErrorResponse struct {
	Detail any `json:"detail"`
}

// JoinContext concatenates retrieved chunk texts, most similar first.
func JoinContext(chunks []ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return strings.Join(texts, ContextSeparator)
}

// BuildPrompt renders the completion prompt for a query and its context block.
func BuildPrompt(context, query string) string {
	return fmt.Sprintf(PromptTemplate, context, query)
}
