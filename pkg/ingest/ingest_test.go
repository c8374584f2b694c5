package ingest_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeric/docquery/internal/models"
	"github.com/bmeric/docquery/internal/types"
	"github.com/bmeric/docquery/pkg/ingest"
)

type fakeSource struct {
	path     string
	released int
}

func (s *fakeSource) Path() string { return s.path }

func (s *fakeSource) Release() error {
	s.released++
	return nil
}

type fakeFetcher struct {
	src        *fakeSource
	err        error
	gotLocator string
}

func (f *fakeFetcher) Resolve(_ context.Context, locator string) (types.Source, error) {
	f.gotLocator = locator
	if f.err != nil {
		return nil, f.err
	}
	return f.src, nil
}

type fakeExtractor struct {
	pages   []models.Page
	err     error
	gotPath string
}

func (e *fakeExtractor) Extract(_ context.Context, path string) ([]models.Page, error) {
	e.gotPath = path
	return e.pages, e.err
}

type fakeStore struct {
	savedDoc   models.Document
	savedPages []models.Page
	inserted   []models.Chunk
	saveErr    error
}

func (s *fakeStore) SaveExtraction(_ context.Context, doc models.Document, pages []models.Page) error {
	s.savedDoc = doc
	s.savedPages = pages
	return s.saveErr
}

func (s *fakeStore) PagesByDocument(_ context.Context, documentID int64) ([]models.Page, error) {
	var pages []models.Page
	for _, p := range s.savedPages {
		p.DocumentID = documentID
		pages = append(pages, p)
	}
	return pages, nil
}

func (s *fakeStore) InsertChunks(_ context.Context, chunks []models.Chunk) error {
	s.inserted = append(s.inserted, chunks...)
	return nil
}

func (s *fakeStore) SearchChunks(context.Context, []string, *int64, int) ([]models.Chunk, error) {
	return nil, nil
}

func (s *fakeStore) GetDocument(context.Context, int64) (models.Document, error) {
	return models.Document{}, nil
}

func (s *fakeStore) DeleteDocument(context.Context, int64) error { return nil }

func (s *fakeStore) CountChunks(context.Context) (int64, error) { return 0, nil }

func dbCaps() types.Capabilities {
	return types.Capabilities{Database: true}
}

func TestIngest_Pipeline(t *testing.T) {
	src := &fakeSource{path: "/tmp/doc.pdf"}
	fetcher := &fakeFetcher{src: src}
	extractor := &fakeExtractor{pages: []models.Page{
		{PageNo: 1, Text: "First page content. It has two sentences."},
		{PageNo: 2, Text: "Second page content."},
	}}
	store := &fakeStore{}

	o := ingest.New(fetcher, extractor, store, dbCaps(), ingest.Config{ChunkSize: 300, ChunkOverlap: 30})
	pages, err := o.Ingest(context.Background(), 7, "minio://docs/doc.pdf")

	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	assert.Equal(t, "minio://docs/doc.pdf", fetcher.gotLocator)
	assert.Equal(t, "/tmp/doc.pdf", extractor.gotPath)

	assert.Equal(t, int64(7), store.savedDoc.ID)
	assert.Equal(t, "Document 7", store.savedDoc.Title)
	assert.Equal(t, "minio://docs/doc.pdf", store.savedDoc.Source)
	assert.Equal(t, models.StatusProcessed, store.savedDoc.Status)
	assert.Len(t, store.savedPages, 2)

	require.Len(t, store.inserted, 2)
	assert.Equal(t, int64(7), store.inserted[0].DocumentID)
	assert.Equal(t, 1, store.inserted[0].PageNo)
	assert.Equal(t, 0, store.inserted[0].Ordinal)
	assert.Equal(t, 2, store.inserted[1].PageNo)

	assert.Equal(t, 1, src.released)
}

func TestIngest_SmallChunksPerPage(t *testing.T) {
	src := &fakeSource{path: "/tmp/doc.pdf"}
	fetcher := &fakeFetcher{src: src}
	extractor := &fakeExtractor{pages: []models.Page{
		{PageNo: 1, Text: "first sentence here. second sentence here. third sentence here"},
	}}
	store := &fakeStore{}

	o := ingest.New(fetcher, extractor, store, dbCaps(), ingest.Config{ChunkSize: 25, ChunkOverlap: 5})
	_, err := o.Ingest(context.Background(), 1, "file:///tmp/doc.pdf")

	require.NoError(t, err)
	require.Greater(t, len(store.inserted), 1)
	for i, chunk := range store.inserted {
		assert.Equal(t, i, chunk.Ordinal)
		assert.Equal(t, 1, chunk.PageNo)
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestIngest_NoDatabase(t *testing.T) {
	fetcher := &fakeFetcher{src: &fakeSource{}}
	o := ingest.New(fetcher, &fakeExtractor{}, &fakeStore{}, types.Capabilities{}, ingest.Config{})

	_, err := o.Ingest(context.Background(), 1, "file:///tmp/doc.pdf")

	assert.ErrorIs(t, err, models.ErrStorage)
	assert.Empty(t, fetcher.gotLocator)
}

func TestIngest_FetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("%w: no such file", models.ErrNotFound)}
	o := ingest.New(fetcher, &fakeExtractor{}, &fakeStore{}, dbCaps(), ingest.Config{})

	_, err := o.Ingest(context.Background(), 1, "file:///missing.pdf")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIngest_ReleasesSourceOnExtractError(t *testing.T) {
	src := &fakeSource{path: "/tmp/doc.pdf"}
	fetcher := &fakeFetcher{src: src}
	extractor := &fakeExtractor{err: fmt.Errorf("%w: unreadable", models.ErrExtraction)}

	o := ingest.New(fetcher, extractor, &fakeStore{}, dbCaps(), ingest.Config{})
	_, err := o.Ingest(context.Background(), 1, "file:///tmp/doc.pdf")

	assert.ErrorIs(t, err, models.ErrExtraction)
	assert.Equal(t, 1, src.released)
}

func TestIngest_ReleasesSourceOnStoreError(t *testing.T) {
	src := &fakeSource{path: "/tmp/doc.pdf"}
	fetcher := &fakeFetcher{src: src}
	extractor := &fakeExtractor{pages: []models.Page{{PageNo: 1, Text: "content"}}}
	store := &fakeStore{saveErr: fmt.Errorf("%w: connection lost", models.ErrStorage)}

	o := ingest.New(fetcher, extractor, store, dbCaps(), ingest.Config{})
	_, err := o.Ingest(context.Background(), 1, "file:///tmp/doc.pdf")

	assert.ErrorIs(t, err, models.ErrStorage)
	assert.Equal(t, 1, src.released)
}

func TestIngest_EmptyPagesProduceNoChunks(t *testing.T) {
	src := &fakeSource{path: "/tmp/blank.pdf"}
	fetcher := &fakeFetcher{src: src}
	extractor := &fakeExtractor{pages: []models.Page{
		{PageNo: 1, Text: ""},
		{PageNo: 2, Text: "   "},
	}}
	store := &fakeStore{}

	o := ingest.New(fetcher, extractor, store, dbCaps(), ingest.Config{})
	pages, err := o.Ingest(context.Background(), 3, "file:///tmp/blank.pdf")

	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Empty(t, store.inserted)
}
