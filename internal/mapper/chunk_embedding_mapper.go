package mapper

import (
	"law-mate-be/internal/entity"
	"law-mate-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type ChunkEmbeddingMapper struct{}

func NewChunkEmbeddingMapper() *ChunkEmbeddingMapper {
	return &ChunkEmbeddingMapper{}
}

func (m *ChunkEmbeddingMapper) ToEntity(e *model.ChunkEmbedding) *entity.ChunkEmbedding {
	if e == nil {
		return nil
	}
	return &entity.ChunkEmbedding{
		Id:         e.Id,
		ChunkId:    e.ChunkId,
		DocumentId: e.DocumentId,
		Ordinal:    e.Ordinal,
		Vector:     e.Vector.Slice(),
		Generation: e.Generation,
		CreatedAt:  e.CreatedAt,
	}
}

func (m *ChunkEmbeddingMapper) ToModel(e *entity.ChunkEmbedding) *model.ChunkEmbedding {
	if e == nil {
		return nil
	}
	return &model.ChunkEmbedding{
		Id:         e.Id,
		ChunkId:    e.ChunkId,
		DocumentId: e.DocumentId,
		Ordinal:    e.Ordinal,
		Vector:     pgvector.NewVector(e.Vector),
		Generation: e.Generation,
		CreatedAt:  e.CreatedAt,
	}
}

func (m *ChunkEmbeddingMapper) ToModels(embeddings []*entity.ChunkEmbedding) []*model.ChunkEmbedding {
	models := make([]*model.ChunkEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = m.ToModel(e)
	}
	return models
}
