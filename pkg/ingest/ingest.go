// Package ingest sequences the document pipeline: fetch the source, extract
// page text, persist the document and its pages, then chunk and store.
package ingest

import (
	"context"
	"fmt"

	"github.com/bmeric/docquery/internal/models"
	"github.com/bmeric/docquery/internal/types"
	"github.com/bmeric/docquery/pkg/chunker"
)

type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

type Orchestrator struct {
	fetcher   types.Fetcher
	extractor types.Extractor
	store     types.Store
	chunks    chunker.Chunker
	caps      types.Capabilities
}

func New(f types.Fetcher, e types.Extractor, s types.Store, caps types.Capabilities, config Config) *Orchestrator {
	return &Orchestrator{
		fetcher:   f,
		extractor: e,
		store:     s,
		chunks:    chunker.New(config.ChunkSize, config.ChunkOverlap),
		caps:      caps,
	}
}

// Ingest runs end-to-end ingestion for one document and returns the number
// of pages processed. Re-running with the same identifier is the recovery
// path for partial failures: the document row is upserted, while pages and
// chunks from earlier runs are left in place (no dedup).
func (o *Orchestrator) Ingest(ctx context.Context, documentID int64, locator string) (int, error) {
	if !o.caps.Database {
		return 0, fmt.Errorf("%w: database unavailable", models.ErrStorage)
	}

	src, err := o.fetcher.Resolve(ctx, locator)
	if err != nil {
		return 0, err
	}
	// The fetched file is released on every exit path; downloads must not
	// outlive the ingestion that requested them.
	defer src.Release()

	pages, err := o.extractor.Extract(ctx, src.Path())
	if err != nil {
		return 0, err
	}

	doc := models.Document{
		ID:     documentID,
		Title:  fmt.Sprintf("Document %d", documentID),
		Source: locator,
		Status: models.StatusProcessed,
	}
	if err := o.store.SaveExtraction(ctx, doc, pages); err != nil {
		return 0, err
	}

	if err := o.chunkDocument(ctx, documentID); err != nil {
		return 0, err
	}

	return len(pages), nil
}

// chunkDocument re-fetches the document's stored pages, splits each into
// overlapping chunks and bulk-inserts them.
func (o *Orchestrator) chunkDocument(ctx context.Context, documentID int64) error {
	pages, err := o.store.PagesByDocument(ctx, documentID)
	if err != nil {
		return err
	}

	var all []models.Chunk
	for _, page := range pages {
		for ordinal, text := range o.chunks.Split(page.Text) {
			all = append(all, models.Chunk{
				DocumentID: documentID,
				PageNo:     page.PageNo,
				Ordinal:    ordinal,
				Text:       text,
			})
		}
	}

	if len(all) == 0 {
		return nil
	}
	return o.store.InsertChunks(ctx, all)
}
