package semantic

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUnavailable reports that the vector backend could not be reached.
// Callers degrade to lexical-only retrieval; this error never aborts a
// pipeline on its own.
var ErrUnavailable = errors.New("semantic retrieval unavailable")

// Scored is one nearest-neighbor hit, similarity in [0,1].
type Scored struct {
	ChunkId    uuid.UUID
	DocumentId uuid.UUID
	Ordinal    int
	Similarity float64
}

// Searcher adapts an external nearest-neighbor capability. The generation
// number scopes the search to one published index snapshot so readers never
// mix results from a half-built rebuild.
type Searcher interface {
	Nearest(ctx context.Context, vector []float32, k int, generation int64) ([]Scored, error)
}
