package chunker

import (
	"strings"
	"unicode/utf8"
)

// Defaults are deliberately smaller than generic chunking defaults to favor
// retrieval precision on short substring queries.
const (
	DefaultChunkSize    = 300
	DefaultChunkOverlap = 30
)

// Chunker splits page text into overlapping fixed-size segments along
// sentence boundaries. Sentence detection is a naive ". " split, kept as the
// documented baseline behavior.
type Chunker struct {
	chunkSize int
	overlap   int
}

func New(chunkSize, overlap int) Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	return Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Split produces ordered, non-empty chunks of text. Empty or whitespace-only
// input yields no chunks. Adjacent chunks share the trailing overlap of the
// previous chunk so retrieval keeps context across the boundary.
func (c Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := strings.Split(text, ". ")

	var chunks []string
	var current string

	for _, sentence := range sentences {
		// Closing out the running chunk: seed the next one with the trailing
		// overlap (or the whole chunk when shorter), then the sentence that
		// triggered the split. Sizes and the overlap count characters,
		// not bytes.
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(sentence) > c.chunkSize && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			seed := current
			if runes := []rune(current); len(runes) > c.overlap {
				seed = string(runes[len(runes)-c.overlap:])
			}
			current = seed + ". " + sentence
			continue
		}

		if current == "" {
			current = sentence
		} else {
			current += ". " + sentence
		}
	}

	// The final accumulated chunk is always emitted, even below chunk_size.
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}
