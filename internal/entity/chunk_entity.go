package entity

import (
	"github.com/google/uuid"
)

// Chunk is the retrieval unit produced by splitting a Document under the
// configured size/overlap policy. Ordinals within a document are gapless.
type Chunk struct {
	Id         uuid.UUID
	DocumentId uuid.UUID
	Ordinal    int
	Text       string
	TokenCount int
	Generation int64
}
