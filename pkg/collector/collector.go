package collector

import (
	"context"
	"time"

	"law-mate-be/internal/entity"
)

// Collector fetches the current legal document set from an external
// registry. Only the Index Lifecycle Manager consumes it.
type Collector interface {
	// FetchDocuments returns the full document set, or the documents
	// changed since the given time when since is non-nil.
	FetchDocuments(ctx context.Context, since *time.Time) ([]*entity.Document, error)
}
