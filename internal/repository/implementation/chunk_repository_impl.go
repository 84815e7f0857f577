package implementation

import (
	"context"

	"law-mate-be/internal/entity"
	"law-mate-be/internal/mapper"
	"law-mate-be/internal/model"
	"law-mate-be/internal/repository/contract"
	"law-mate-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkMapper
}

func NewChunkRepository(db *gorm.DB) contract.ChunkRepository {
	return &ChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkMapper(),
	}
}

func (r *ChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	return r.db.WithContext(ctx).CreateInBatches(models, 500).Error
}

func (r *ChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error) {
	var models []*model.Chunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Chunk{}).Count(&count).Error
	return count, err
}

func (r *ChunkRepositoryImpl) MaxGeneration(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Select("COALESCE(MAX(generation), 0)").
		Scan(&max).Error
	return max, err
}

func (r *ChunkRepositoryImpl) ListGenerations(ctx context.Context) ([]int64, error) {
	var generations []int64
	err := r.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Distinct("generation").
		Order("generation DESC").
		Pluck("generation", &generations).Error
	return generations, err
}

func (r *ChunkRepositoryImpl) DeleteGeneration(ctx context.Context, generation int64) error {
	return r.db.WithContext(ctx).Where("generation = ?", generation).Delete(&model.Chunk{}).Error
}

func (r *ChunkRepositoryImpl) DeleteGenerationsBelow(ctx context.Context, floor int64) error {
	return r.db.WithContext(ctx).Where("generation < ?", floor).Delete(&model.Chunk{}).Error
}
