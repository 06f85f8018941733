// Package pdftext turns uploaded document bytes into plain text. PDF payloads
// go through the pdf parser; anything else is accepted as-is when it already
// is valid UTF-8 text. Extraction is best effort and never fails the pipeline.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

type Extractor struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Extractor {
	return &Extractor{log: log}
}

func (e *Extractor) Extract(_ context.Context, filename string, data []byte) string {
	if len(data) == 0 {
		return ""
	}

	if isPDF(filename, data) {
		text, err := e.fromPDF(data)
		if err != nil {
			e.log.Warn("pdf text extraction failed", "filename", filename, "error", err)
			return ""
		}
		return text
	}

	if utf8.Valid(data) {
		return string(data)
	}
	e.log.Warn("unsupported document payload", "filename", filename)
	return ""
}

func isPDF(filename string, data []byte) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf") || bytes.HasPrefix(data, []byte("%PDF"))
}

// fromPDF guards against panics; the parser is not hardened against
// malformed files.
func (e *Extractor) fromPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}
	return buf.String(), nil
}
