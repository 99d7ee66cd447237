// Package parser turns uploaded documents into one linear text blob.
package parser

import (
	"context"
	"errors"
)

// ErrInvalidPDF is returned when the bytes are not a readable PDF.
var ErrInvalidPDF = errors.New("parser: invalid PDF")

// Extractor converts a document to plain text. Pages are kept in order
// and separated by a newline.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}
