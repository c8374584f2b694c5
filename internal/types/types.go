package types

import (
	"context"

	"github.com/bmeric/docquery/internal/models"
)

// Source is a locally readable copy of a fetched document. Release deletes
// any temporary file backing it; callers own the release on every exit path.
type Source interface {
	Path() string
	Release() error
}

// Fetcher resolves a source locator to a local file.
type Fetcher interface {
	Resolve(ctx context.Context, locator string) (Source, error)
}

// Extractor produces per-page text from a local document file.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]models.Page, error)
}

// Store is the relational persistence layer.
type Store interface {
	SaveExtraction(ctx context.Context, doc models.Document, pages []models.Page) error
	PagesByDocument(ctx context.Context, documentID int64) ([]models.Page, error)
	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	SearchChunks(ctx context.Context, terms []string, documentID *int64, limit int) ([]models.Chunk, error)
	GetDocument(ctx context.Context, id int64) (models.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
	CountChunks(ctx context.Context) (int64, error)
}

// Generator synthesizes an answer from a query and a context block of
// retrieved chunks.
type Generator interface {
	Generate(ctx context.Context, query, contextBlock string) (string, error)
}

// Capabilities records which optional backends were available at startup.
// It is resolved once in the composition root and threaded through
// components; nothing re-checks availability per call.
type Capabilities struct {
	OCR      bool
	Database bool
	Answerer bool
}
