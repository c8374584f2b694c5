package models

import "time"

// DocumentStatus tracks where a document is in the ingestion pipeline.
// Transitions are one-directional in normal operation: pending -> processed.
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusProcessed DocumentStatus = "processed"
	StatusFailed    DocumentStatus = "failed"
)

// Document is one logical ingested document. The identifier is supplied by
// the caller; re-ingesting with the same ID overwrites title, source and
// status.
type Document struct {
	ID        int64
	Title     string
	Source    string
	Status    DocumentStatus
	CreatedAt time.Time
}

// Page is the extracted text of a single document page. Page numbers are
// 1-based and contiguous per document. Pages are never updated in place;
// re-extraction creates new rows.
type Page struct {
	ID         int64
	DocumentID int64
	PageNo     int
	Text       string
}

// Chunk is an overlapping segment of a page's text, immutable once stored.
// Ordinal is the chunk's index within its source page; it is derived during
// chunking and not persisted.
type Chunk struct {
	ID         int64
	DocumentID int64
	PageNo     int
	Ordinal    int
	Text       string
	CreatedAt  time.Time
}

// Query is a free-text question, optionally scoped to one document. It is
// never persisted.
type Query struct {
	Text       string
	DocumentID *int64
	TopK       int
}

// Citation points at the page a retrieved chunk came from. The score is a
// constant 1.0 placeholder: retrieval is unranked substring matching.
type Citation struct {
	DocumentID int64   `json:"documentId"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
}

// Answer is the synthesized response plus the chunks it was built from.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}
