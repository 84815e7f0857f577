package implementation

import (
	"context"

	"law-mate-be/internal/entity"
	"law-mate-be/internal/mapper"
	"law-mate-be/internal/model"
	"law-mate-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkEmbeddingMapper
}

func NewChunkEmbeddingRepository(db *gorm.DB) contract.ChunkEmbeddingRepository {
	return &ChunkEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkEmbeddingMapper(),
	}
}

func (r *ChunkEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.ChunkEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	models := r.mapper.ToModels(embeddings)
	return r.db.WithContext(ctx).CreateInBatches(models, 200).Error
}

func (r *ChunkEmbeddingRepositoryImpl) Count(ctx context.Context, generation int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChunkEmbedding{}).
		Where("generation = ?", generation).
		Count(&count).Error
	return count, err
}

// SearchSimilarWithScore returns similarity hits scoped to one generation.
// Cosine distance in pgvector is 1 - cosine_similarity, so the score is
// computed as 1 - (vector <=> query_vector).
func (r *ChunkEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, vector []float32, limit int, generation int64, threshold float64) ([]*contract.ScoredChunkEmbedding, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.ChunkEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)

	err := r.db.WithContext(ctx).
		Table("chunk_embeddings").
		Select("chunk_embeddings.*, 1 - (vector <=> ?) as similarity", queryVector).
		Where("generation = ?", generation).
		Where("1 - (vector <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunkEmbedding, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunkEmbedding{
			ChunkId:    res.ChunkId,
			DocumentId: res.DocumentId,
			Ordinal:    res.Ordinal,
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (r *ChunkEmbeddingRepositoryImpl) DeleteGeneration(ctx context.Context, generation int64) error {
	return r.db.WithContext(ctx).Where("generation = ?", generation).Delete(&model.ChunkEmbedding{}).Error
}

func (r *ChunkEmbeddingRepositoryImpl) DeleteGenerationsBelow(ctx context.Context, floor int64) error {
	return r.db.WithContext(ctx).Where("generation < ?", floor).Delete(&model.ChunkEmbedding{}).Error
}
