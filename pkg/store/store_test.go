package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeric/docquery/internal/models"
)

func TestBuildSearchQuery(t *testing.T) {
	query, args := buildSearchQuery([]string{"refund", "policy"}, nil, 6)

	assert.Equal(t,
		"SELECT id, document_id, page_no, text FROM chunks WHERE text ILIKE $1 OR text ILIKE $2 LIMIT $3",
		query)
	assert.Equal(t, []any{"%refund%", "%policy%", 6}, args)
}

func TestBuildSearchQuery_SingleTerm(t *testing.T) {
	query, args := buildSearchQuery([]string{"refund"}, nil, 10)

	assert.Equal(t,
		"SELECT id, document_id, page_no, text FROM chunks WHERE text ILIKE $1 LIMIT $2",
		query)
	assert.Equal(t, []any{"%refund%", 10}, args)
}

func TestBuildSearchQuery_ScopedToDocument(t *testing.T) {
	docID := int64(4)
	query, args := buildSearchQuery([]string{"refund", "policy"}, &docID, 6)

	assert.Equal(t,
		"SELECT id, document_id, page_no, text FROM chunks WHERE document_id=$1 AND (text ILIKE $2 OR text ILIKE $3) LIMIT $4",
		query)
	assert.Equal(t, []any{int64(4), "%refund%", "%policy%", 6}, args)
}

// TestStoreRoundTrip needs a reachable Postgres, pointed at by
// DOCQUERY_TEST_DATABASE_URL. It creates and deletes its own document.
func TestStoreRoundTrip(t *testing.T) {
	connString := os.Getenv("DOCQUERY_TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("DOCQUERY_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := NewWithConfig(ctx, StoreConfig{ConnString: connString})
	require.NoError(t, err)
	defer s.Close()

	const docID = int64(990011)
	defer s.DeleteDocument(ctx, docID)

	doc := models.Document{
		ID:     docID,
		Title:  "Round Trip Document",
		Source: "file:///tmp/roundtrip.pdf",
		Status: models.StatusProcessed,
	}
	pages := []models.Page{
		{PageNo: 1, Text: "The refund policy covers all purchases."},
		{PageNo: 2, Text: "Shipping takes five business days."},
	}
	require.NoError(t, s.SaveExtraction(ctx, doc, pages))

	got, err := s.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "Round Trip Document", got.Title)
	assert.Equal(t, models.StatusProcessed, got.Status)

	stored, err := s.PagesByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 1, stored[0].PageNo)
	assert.Equal(t, 2, stored[1].PageNo)

	chunks := []models.Chunk{
		{DocumentID: docID, PageNo: 1, Text: "The refund policy covers all purchases."},
		{DocumentID: docID, PageNo: 2, Text: "Shipping takes five business days."},
	}
	require.NoError(t, s.InsertChunks(ctx, chunks))

	count, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(2))

	// Case-insensitive substring match, scoped to the document.
	scope := docID
	found, err := s.SearchChunks(ctx, []string{"refund"}, &scope, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 1, found[0].PageNo)

	// OR semantics: either term matches.
	found, err = s.SearchChunks(ctx, []string{"refund", "shipping"}, &scope, 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// Re-ingesting the same identifier overwrites the document row; page
	// rows from both runs coexist because pages are never updated in place.
	again := models.Document{
		ID:     docID,
		Title:  "Round Trip Document v2",
		Source: "minio://docs/roundtrip.pdf",
		Status: models.StatusProcessed,
	}
	require.NoError(t, s.SaveExtraction(ctx, again, pages))

	got, err = s.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "Round Trip Document v2", got.Title)
	assert.Equal(t, "minio://docs/roundtrip.pdf", got.Source)

	stored, err = s.PagesByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	require.NoError(t, s.DeleteDocument(ctx, docID))

	_, err = s.GetDocument(ctx, docID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// The delete cascades to pages and chunks.
	stored, err = s.PagesByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
