package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bmeric/docquery/internal/models"
)

type StoreConfig struct {
	ConnString string
	BatchSize  int // chunk rows per insert statement
}

// Store persists documents, pages and chunks in Postgres. Deleting a
// document cascades to its pages and chunks so orphaned search results
// cannot survive.
type Store struct {
	config StoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config StoreConfig) (*Store, error) {
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &Store{
		config: config,
		pool:   pool,
	}

	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id BIGINT PRIMARY KEY,
			title TEXT,
			source TEXT,
			status TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS document_pages (
			id BIGSERIAL PRIMARY KEY,
			document_id BIGINT REFERENCES documents(id) ON DELETE CASCADE,
			page_no INTEGER NOT NULL,
			text TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id BIGSERIAL PRIMARY KEY,
			document_id BIGINT REFERENCES documents(id) ON DELETE CASCADE,
			page_no INTEGER NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		// Full-text indexes kept in the schema even though search below is
		// substring matching.
		`CREATE INDEX IF NOT EXISTS idx_chunks_text
			ON chunks USING gin(to_tsvector('english', text))`,
		`CREATE INDEX IF NOT EXISTS idx_document_pages_text
			ON document_pages USING gin(to_tsvector('english', text))`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %v", err)
		}
	}
	return nil
}

// SaveExtraction upserts the document row and bulk-inserts its pages in one
// transaction. A conflicting document ID overwrites title, source and status,
// which is what makes re-ingestion by identifier idempotent.
func (s *Store) SaveExtraction(ctx context.Context, doc models.Document, pages []models.Page) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", models.ErrStorage, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO documents (id, title, source, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			source = EXCLUDED.source,
			status = EXCLUDED.status`,
		doc.ID, doc.Title, doc.Source, string(doc.Status))
	if err != nil {
		return fmt.Errorf("%w: upsert document: %v", models.ErrStorage, err)
	}

	if len(pages) > 0 {
		batch := &pgx.Batch{}
		for _, p := range pages {
			batch.Queue(
				"INSERT INTO document_pages(document_id, page_no, text) VALUES ($1, $2, $3)",
				doc.ID, p.PageNo, p.Text)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("%w: insert pages: %v", models.ErrStorage, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) PagesByDocument(ctx context.Context, documentID int64) ([]models.Page, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, page_no, text FROM document_pages WHERE document_id=$1 ORDER BY page_no, id",
		documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		p := models.Page{DocumentID: documentID}
		if err := rows.Scan(&p.ID, &p.PageNo, &p.Text); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// InsertChunks writes chunks in fixed-size batches to bound per-statement
// payload size.
func (s *Store) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", models.ErrStorage, err)
	}
	defer tx.Rollback(ctx)

	for start := 0; start < len(chunks); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := &pgx.Batch{}
		for _, c := range chunks[start:end] {
			batch.Queue(
				"INSERT INTO chunks(document_id, page_no, text) VALUES ($1, $2, $3)",
				c.DocumentID, c.PageNo, c.Text)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("%w: insert chunks: %v", models.ErrStorage, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", models.ErrStorage, err)
	}
	return nil
}

// SearchChunks returns chunks whose text contains any of the given terms,
// case-insensitively, in natural storage order. No ranking is applied.
func (s *Store) SearchChunks(ctx context.Context, terms []string, documentID *int64, limit int) ([]models.Chunk, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	query, args := buildSearchQuery(terms, documentID, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.PageNo, &c.Text); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func buildSearchQuery(terms []string, documentID *int64, limit int) (string, []any) {
	var args []any
	var conditions []string

	if documentID != nil {
		args = append(args, *documentID)
	}

	for _, term := range terms {
		args = append(args, "%"+term+"%")
		conditions = append(conditions, fmt.Sprintf("text ILIKE $%d", len(args)))
	}

	args = append(args, limit)
	where := strings.Join(conditions, " OR ")

	if documentID != nil {
		return fmt.Sprintf(
			"SELECT id, document_id, page_no, text FROM chunks WHERE document_id=$1 AND (%s) LIMIT $%d",
			where, len(args)), args
	}
	return fmt.Sprintf(
		"SELECT id, document_id, page_no, text FROM chunks WHERE %s LIMIT $%d",
		where, len(args)), args
}

func (s *Store) GetDocument(ctx context.Context, id int64) (models.Document, error) {
	var doc models.Document
	var status string

	err := s.pool.QueryRow(ctx,
		"SELECT id, title, source, status, created_at FROM documents WHERE id=$1", id).
		Scan(&doc.ID, &doc.Title, &doc.Source, &status, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, fmt.Errorf("%w: document %d", models.ErrNotFound, id)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	doc.Status = models.DocumentStatus(status)
	return doc, nil
}

// DeleteDocument removes the document row; pages and chunks go with it via
// the foreign-key cascade.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE id=$1", id); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return count, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
