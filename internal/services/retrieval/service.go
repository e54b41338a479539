package retrieval

import (
	"context"

	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/models"
)

// Service joins an embedder and a vector store into a RetrievalService
type Service struct {
	embedder interfaces.Embedder
	store    interfaces.VectorStore
}

// NewService creates the retrieval service
func NewService(embedder interfaces.Embedder, store interfaces.VectorStore) *Service {
	return &Service{embedder: embedder, store: store}
}

// Embed turns a retrieval query into a vector
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.Embed(ctx, text)
}

// Search returns the nearest context blocks
func (s *Service) Search(ctx context.Context, vector []float32, subject string, sections []string, k int) ([]models.ContextBlock, error) {
	return s.store.Search(ctx, vector, subject, sections, k)
}
