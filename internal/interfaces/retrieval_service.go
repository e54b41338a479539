package interfaces

import (
	"context"

	"github.com/ternarybob/bizassess/internal/models"
)

// Embedder turns retrieval queries into vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore returns the k most similar context blocks for a subject,
// restricted to the given sections, ordered by descending similarity
type VectorStore interface {
	Search(ctx context.Context, vector []float32, subject string, sections []string, k int) ([]models.ContextBlock, error)
}

// RetrievalService combines embedding and vector search
type RetrievalService interface {
	Embedder
	VectorStore
}
