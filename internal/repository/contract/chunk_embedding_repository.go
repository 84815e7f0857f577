package contract

import (
	"context"

	"law-mate-be/internal/entity"

	"github.com/google/uuid"
)

// ScoredChunkEmbedding wraps a similarity hit with its score
type ScoredChunkEmbedding struct {
	ChunkId    uuid.UUID
	DocumentId uuid.UUID
	Ordinal    int
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type ChunkEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.ChunkEmbedding) error
	Count(ctx context.Context, generation int64) (int64, error)
	// SearchSimilarWithScore runs a cosine-similarity query scoped to one
	// index generation, filtered by threshold, ordered by similarity.
	SearchSimilarWithScore(ctx context.Context, vector []float32, limit int, generation int64, threshold float64) ([]*ScoredChunkEmbedding, error)
	DeleteGeneration(ctx context.Context, generation int64) error
	DeleteGenerationsBelow(ctx context.Context, floor int64) error
}
