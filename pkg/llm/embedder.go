package llm

import (
	"math/rand"

	"github.com/pgvector/pgvector-go"
)

// DefaultVectorDim matches the all-MiniLM-L6-v2 embedding width the schema
// was originally sized for.
const DefaultVectorDim = 384

// Embedder produces placeholder chunk embeddings. The vectors are random;
// a real embedding service would slot in behind the same signature. Nothing
// on the answer path consults these — retrieval is substring matching.
type Embedder struct {
	dim int
}

func NewEmbedder() *Embedder {
	return NewEmbedderWithDim(DefaultVectorDim)
}

func NewEmbedderWithDim(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultVectorDim
	}
	return &Embedder{dim: dim}
}

func (e *Embedder) Dim() int { return e.dim }

// EmbedChunks returns one vector per input text.
func (e *Embedder) EmbedChunks(texts []string) []pgvector.Vector {
	vectors := make([]pgvector.Vector, len(texts))
	for i := range texts {
		values := make([]float32, e.dim)
		for j := range values {
			values[j] = rand.Float32()
		}
		vectors[i] = pgvector.NewVector(values)
	}
	return vectors
}
