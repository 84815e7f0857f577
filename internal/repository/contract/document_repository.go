package contract

import (
	"context"

	"law-mate-be/internal/entity"
	"law-mate-be/internal/repository/specification"
)

type DocumentRepository interface {
	CreateBulk(ctx context.Context, docs []*entity.Document) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteGeneration(ctx context.Context, generation int64) error
	// DeleteGenerationsBelow hard-deletes every row older than the floor
	// generation. Called only after a newer generation has been published,
	// with a floor that keeps the previous generation for in-flight queries.
	DeleteGenerationsBelow(ctx context.Context, floor int64) error
}
