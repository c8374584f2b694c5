// Package answer retrieves stored chunks matching a free-text query and
// delegates answer synthesis to an external language model. Empty results
// and bad document scopes are successful responses with explanatory text,
// never errors; asking a question should not produce a hard failure.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bmeric/docquery/internal/models"
	"github.com/bmeric/docquery/internal/types"
)

const DefaultTopK = 6

const (
	msgMoreSpecific = "Please provide a more specific question with meaningful keywords."
	msgNoDocuments  = "No documents have been processed yet. Please upload and process a document first."
	msgNoMatches    = "I couldn't find any relevant information in the uploaded documents to answer your question. " +
		"Please try rephrasing your question or make sure you have uploaded relevant documents."
	msgNoAnswerer = "AI service not available. Please check configuration."
)

type Service struct {
	store     types.Store
	generator types.Generator
	caps      types.Capabilities
}

func New(store types.Store, generator types.Generator, caps types.Capabilities) *Service {
	return &Service{
		store:     store,
		generator: generator,
		caps:      caps,
	}
}

// Answer resolves a query to an answer plus citations. Only empty queries
// and storage failures return errors; everything else degrades to an
// in-band message.
func (s *Service) Answer(ctx context.Context, query models.Query) (models.Answer, error) {
	if strings.TrimSpace(query.Text) == "" {
		return models.Answer{}, fmt.Errorf("%w: query cannot be empty", models.ErrValidation)
	}

	if !s.caps.Database {
		return models.Answer{}, fmt.Errorf("%w: database unavailable", models.ErrStorage)
	}

	terms := searchTerms(query.Text)
	if len(terms) == 0 {
		return models.Answer{Text: msgMoreSpecific, Citations: []models.Citation{}}, nil
	}

	count, err := s.store.CountChunks(ctx)
	if err != nil {
		return models.Answer{}, err
	}
	if count == 0 {
		return models.Answer{Text: msgNoDocuments, Citations: []models.Citation{}}, nil
	}

	if query.DocumentID != nil {
		if _, err := s.store.GetDocument(ctx, *query.DocumentID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				text := fmt.Sprintf("Document with ID %d not found. Please check the document ID "+
					"or leave it empty to search all documents.", *query.DocumentID)
				return models.Answer{Text: text, Citations: []models.Citation{}}, nil
			}
			return models.Answer{}, err
		}
	}

	topK := query.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	chunks, err := s.store.SearchChunks(ctx, terms, query.DocumentID, topK)
	if err != nil {
		return models.Answer{}, err
	}
	if len(chunks) == 0 {
		return models.Answer{Text: msgNoMatches, Citations: []models.Citation{}}, nil
	}

	citations := make([]models.Citation, len(chunks))
	for i, c := range chunks {
		citations[i] = models.Citation{DocumentID: c.DocumentID, Page: c.PageNo, Score: 1.0}
	}

	if s.generator == nil || !s.caps.Answerer {
		return models.Answer{Text: msgNoAnswerer, Citations: citations}, nil
	}

	text, err := s.generator.Generate(ctx, query.Text, buildContext(chunks))
	if err != nil {
		// A degraded answer beats a hard error on the question endpoint.
		text = fmt.Sprintf("I apologize, but I encountered an error while processing "+
			"your question: %v. Please try again.", err)
	}

	return models.Answer{Text: text, Citations: citations}, nil
}

// searchTerms lower-cases the query and keeps tokens longer than one
// character. No stemming, no stop-word removal.
func searchTerms(query string) []string {
	var terms []string
	for _, word := range strings.Fields(query) {
		word = strings.ToLower(strings.TrimSpace(word))
		if utf8.RuneCountInString(word) > 1 {
			terms = append(terms, word)
		}
	}
	return terms
}

// buildContext concatenates matched chunks in retrieval order, each prefixed
// with its source document and page.
func buildContext(chunks []models.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[Document %d, Page %d]: %s", c.DocumentID, c.PageNo, c.Text)
	}
	return strings.Join(parts, "\n\n")
}
