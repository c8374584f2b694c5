package models

import "errors"

// Pipeline errors, wrapped with context at the failure site. Fetch-stage
// errors are caller-correctable; content-stage errors may indicate corrupt
// input; storage errors are fatal to the current request and recovered by
// re-running the whole ingestion.
var (
	// ErrInvalidLocator indicates a source locator that cannot be parsed,
	// e.g. an object-storage path missing its key segment.
	ErrInvalidLocator = errors.New("invalid locator")

	// ErrNotFound indicates a referenced file or document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDownload indicates a remote source could not be retrieved.
	ErrDownload = errors.New("download failed")

	// ErrUnsupportedFormat indicates the input could not be parsed as a PDF.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtraction indicates both PDF extraction and the whole-image OCR
	// fallback failed.
	ErrExtraction = errors.New("extraction failed")

	// ErrValidation indicates a malformed query.
	ErrValidation = errors.New("invalid query")

	// ErrStorage indicates a persistence failure. The transaction it aborted
	// has been rolled back.
	ErrStorage = errors.New("storage failure")

	// ErrAnswerGeneration indicates the external LLM call failed. The answer
	// service downgrades it to an in-band apologetic message.
	ErrAnswerGeneration = errors.New("answer generation failed")
)
