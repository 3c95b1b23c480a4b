package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"pdf-qa/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

const pageSeparator = "\n"

// IsPDF reports whether data starts with a PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// ExtractText returns the plain text of every page, in page order, joined
// by a newline. Unreadable documents and documents without any text yield
// an ExtractionError.
func ExtractText(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", &models.ExtractionError{Reason: "empty upload"}
	}
	if !IsPDF(data) {
		return "", &models.ExtractionError{Reason: "not a PDF document"}
	}

	// the reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &models.ExtractionError{Reason: "malformed PDF", Err: fmt.Errorf("%v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &models.ExtractionError{Reason: "cannot open PDF", Err: err}
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", &models.ExtractionError{Reason: fmt.Sprintf("cannot read page %d", i), Err: err}
		}
		pages = append(pages, pageText)
	}

	text = strings.Join(pages, pageSeparator)
	if strings.TrimSpace(text) == "" {
		return "", &models.ExtractionError{Reason: "no text found in PDF"}
	}

	log.Debug().Int("pages", numPages).Int("chars", len(text)).Msg("Extracted PDF text")
	return text, nil
}

// ExtractTextContext runs ExtractText but gives up once ctx is done.
func ExtractTextContext(ctx context.Context, data []byte) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := ExtractText(data)
		done <- result{text, err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", &models.ExtractionError{Reason: "extraction timed out", Err: ctx.Err()}
	}
}
