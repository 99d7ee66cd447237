package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfMagic must appear within the first kilobyte of a PDF file.
var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data carries the PDF header.
func IsPDF(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, pdfMagic)
}

// PDF extracts the text layer of a PDF. Scanned pages without text
// contribute nothing; there is no OCR.
type PDF struct{}

var _ Extractor = PDF{}

// Extract is ExtractText.
func (PDF) Extract(ctx context.Context, data []byte) (string, error) {
	return ExtractText(ctx, data)
}

// ExtractText returns the text of every page, joined by newlines and
// trimmed. A PDF without a text layer yields "".
func ExtractText(ctx context.Context, data []byte) (text string, err error) {
	if !IsPDF(data) {
		return "", ErrInvalidPDF
	}

	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("pdf.page.skipped", "page", i, "error", err)
			continue
		}
		pages = append(pages, content)
	}

	return JoinPages(pages), nil
}

// JoinPages joins non-empty page texts with a newline and trims the result.
func JoinPages(pages []string) string {
	var sb strings.Builder
	for _, p := range pages {
		if p == "" {
			continue
		}
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
