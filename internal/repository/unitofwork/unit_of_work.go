package unitofwork

import (
	"context"

	"law-mate-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	ChunkRepository() contract.ChunkRepository
	ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository
}
