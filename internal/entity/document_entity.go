package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is an immutable legal source text (statute or precedent).
// Re-collection replaces documents wholesale under a new index generation;
// rows are never patched in place.
type Document struct {
	Id          uuid.UUID
	SourceURI   string
	Title       string
	Body        string
	LastUpdated time.Time
	Generation  int64
	CreatedAt   time.Time
}
