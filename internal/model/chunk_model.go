package model

import (
	"github.com/google/uuid"
)

type Chunk struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentId uuid.UUID `gorm:"type:uuid;not null;index"`
	Ordinal    int       `gorm:"not null"`
	Text       string    `gorm:"type:text;not null"`
	TokenCount int       `gorm:"not null"`
	Generation int64     `gorm:"not null;index"`
}

func (Chunk) TableName() string {
	return "chunks"
}
