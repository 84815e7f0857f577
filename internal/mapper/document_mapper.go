package mapper

import (
	"law-mate-be/internal/entity"
	"law-mate-be/internal/model"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}
	return &entity.Document{
		Id:          d.Id,
		SourceURI:   d.SourceURI,
		Title:       d.Title,
		Body:        d.Body,
		LastUpdated: d.LastUpdated,
		Generation:  d.Generation,
		CreatedAt:   d.CreatedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}
	return &model.Document{
		Id:          d.Id,
		SourceURI:   d.SourceURI,
		Title:       d.Title,
		Body:        d.Body,
		LastUpdated: d.LastUpdated,
		Generation:  d.Generation,
		CreatedAt:   d.CreatedAt,
	}
}

func (m *DocumentMapper) ToEntities(docs []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}

func (m *DocumentMapper) ToModels(docs []*entity.Document) []*model.Document {
	models := make([]*model.Document, len(docs))
	for i, d := range docs {
		models[i] = m.ToModel(d)
	}
	return models
}
