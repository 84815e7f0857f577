package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type ChunkEmbedding struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ChunkId    uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentId uuid.UUID       `gorm:"type:uuid;not null;index"`
	Ordinal    int             `gorm:"not null"`
	Vector     pgvector.Vector `gorm:"type:vector(768)"`
	Generation int64           `gorm:"not null;index"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (ChunkEmbedding) TableName() string {
	return "chunk_embeddings"
}
