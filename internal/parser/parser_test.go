package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"pdf-qa/internal/models"
	"pdf-qa/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  string
	}{
		{
			name:  "single page",
			pages: []string{"The cat sat on the mat."},
			want:  "The cat sat on the mat.",
		},
		{
			name:  "pages joined in order",
			pages: []string{"First page.", "Second page.", "Third page."},
			want:  "First page.\nSecond page.\nThird page.",
		},
		{
			name:  "lines within a page",
			pages: []string{"Line one\nLine two"},
			want:  "Line one\nLine two",
		},
		{
			name:  "escaped characters",
			pages: []string{`Paren (inside) and \ slash`},
			want:  `Paren (inside) and \ slash`,
		},
		{
			name:  "blank page kept as empty segment",
			pages: []string{"Alpha", "", "Omega"},
			want:  "Alpha\n\nOmega",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText(testutil.BuildPDF(tt.pages...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTextFailures(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty upload", data: nil},
		{name: "not a pdf", data: []byte("just some plain text that is not a PDF")},
		{name: "truncated pdf", data: testutil.BuildPDF("hello")[:60]},
		{name: "whitespace only", data: testutil.BuildPDF("   ", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := ExtractText(tt.data)
			require.Error(t, err)
			assert.Empty(t, text)

			var extractionErr *models.ExtractionError
			assert.True(t, errors.As(err, &extractionErr), "got %T", err)
		})
	}
}

func TestExtractTextContext(t *testing.T) {
	text, err := ExtractTextContext(context.Background(), testutil.BuildPDF("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	// either outcome is valid once the deadline passed, but an error must be typed
	_, err = ExtractTextContext(ctx, testutil.BuildPDF("hello world"))
	if err != nil {
		var extractionErr *models.ExtractionError
		assert.True(t, errors.As(err, &extractionErr))
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF(testutil.BuildPDF("x")))
	assert.False(t, IsPDF([]byte("PK\x03\x04")))
}
