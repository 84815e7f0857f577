package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChunkEmbedding holds the embedding vector for one chunk. DocumentId and
// Ordinal are denormalized so similarity hits can be tie-broken without a
// join back to chunks.
type ChunkEmbedding struct {
	Id         uuid.UUID
	ChunkId    uuid.UUID
	DocumentId uuid.UUID
	Ordinal    int
	Vector     []float32
	Generation int64
	CreatedAt  time.Time
}
