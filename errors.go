package goinforme

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFile is returned when a request carries no document.
	ErrNoFile = errors.New("goinforme: no file was sent")

	// ErrNotPDF is returned for uploads that are not named .pdf or do not
	// carry a PDF header.
	ErrNotPDF = errors.New("goinforme: invalid PDF file")

	// ErrNoText is returned when the PDF has no extractable text layer.
	ErrNoText = errors.New("goinforme: could not extract text from the PDF")

	// ErrNoSections is returned when none of the report sections is found.
	// Nothing is cached, so a later upload under the same name is
	// extracted again.
	ErrNoSections = errors.New("goinforme: no relevant information found in the PDF")

	// ErrResultNotFound is returned when no result is stored for a name.
	ErrResultNotFound = errors.New("goinforme: result not found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("goinforme: invalid configuration")
)

// IsInputError reports whether err was caused by the request itself.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoFile) || errors.Is(err, ErrNotPDF)
}

// IsExtractionEmpty reports whether the document produced nothing to send
// to the model.
func IsExtractionEmpty(err error) bool {
	return errors.Is(err, ErrNoText) || errors.Is(err, ErrNoSections)
}

// UpstreamError reports a failed model call or an unusable reply. Raw
// carries the upstream payload when one was received.
type UpstreamError struct {
	Op  string
	Raw string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("goinforme: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
