package mapper

import (
	"law-mate-be/internal/entity"
	"law-mate-be/internal/model"
)

type ChunkMapper struct{}

func NewChunkMapper() *ChunkMapper {
	return &ChunkMapper{}
}

func (m *ChunkMapper) ToEntity(c *model.Chunk) *entity.Chunk {
	if c == nil {
		return nil
	}
	return &entity.Chunk{
		Id:         c.Id,
		DocumentId: c.DocumentId,
		Ordinal:    c.Ordinal,
		Text:       c.Text,
		TokenCount: c.TokenCount,
		Generation: c.Generation,
	}
}

func (m *ChunkMapper) ToModel(c *entity.Chunk) *model.Chunk {
	if c == nil {
		return nil
	}
	return &model.Chunk{
		Id:         c.Id,
		DocumentId: c.DocumentId,
		Ordinal:    c.Ordinal,
		Text:       c.Text,
		TokenCount: c.TokenCount,
		Generation: c.Generation,
	}
}

func (m *ChunkMapper) ToEntities(chunks []*model.Chunk) []*entity.Chunk {
	entities := make([]*entity.Chunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ChunkMapper) ToModels(chunks []*entity.Chunk) []*model.Chunk {
	models := make([]*model.Chunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
