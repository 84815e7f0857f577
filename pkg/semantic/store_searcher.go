package semantic

import (
	"context"
	"fmt"

	"law-mate-be/internal/repository/unitofwork"
)

// StoreSearcher implements Searcher on top of the pgvector-backed
// chunk-embedding repository. It never computes embeddings itself.
type StoreSearcher struct {
	uowFactory unitofwork.RepositoryFactory
}

var _ Searcher = &StoreSearcher{}

func NewStoreSearcher(uowFactory unitofwork.RepositoryFactory) *StoreSearcher {
	return &StoreSearcher{uowFactory: uowFactory}
}

func (s *StoreSearcher) Nearest(ctx context.Context, vector []float32, k int, generation int64) ([]Scored, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", ErrUnavailable)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	// Threshold 0 at the store level; the fusion ranker applies the
	// configured floor after normalization.
	hits, err := uow.ChunkEmbeddingRepository().SearchSimilarWithScore(ctx, vector, k, generation, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	scored := make([]Scored, len(hits))
	for i, h := range hits {
		scored[i] = Scored{
			ChunkId:    h.ChunkId,
			DocumentId: h.DocumentId,
			Ordinal:    h.Ordinal,
			Similarity: clamp01(h.Similarity),
		}
	}
	return scored, nil
}

// clamp01 guards against backends reporting similarity slightly outside
// [0,1] from floating point drift.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
