package contract

import (
	"context"

	"law-mate-be/internal/entity"
	"law-mate-be/internal/repository/specification"
)

type ChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.Chunk) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// MaxGeneration returns the highest generation present, 0 when the
	// table is empty. Used to recover the published generation on startup.
	MaxGeneration(ctx context.Context) (int64, error)
	// ListGenerations returns every persisted generation, newest first.
	ListGenerations(ctx context.Context) ([]int64, error)
	DeleteGeneration(ctx context.Context, generation int64) error
	DeleteGenerationsBelow(ctx context.Context, floor int64) error
}
