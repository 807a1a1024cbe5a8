package implementation

import (
	"context"
	"errors"

	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/mapper"
	"ai-codereview-be/internal/model"
	"ai-codereview-be/internal/repository/contract"
	"ai-codereview-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RunRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RunMapper
}

func NewRunRepository(db *gorm.DB) contract.RunRepository {
	return &RunRepositoryImpl{
		db:     db,
		mapper: mapper.NewRunMapper(),
	}
}

// Save inserts or fully overwrites the run row
func (r *RunRepositoryImpl) Save(ctx context.Context, run *entity.Run) error {
	m, err := r.mapper.ToModel(run)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *RunRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	var m model.ReviewRun
	query := specification.Apply(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *RunRepositoryImpl) FindAll(ctx context.Context, q contract.RunQuery) ([]*entity.Run, error) {
	var models []*model.ReviewRun
	query := specification.Apply(r.db.WithContext(ctx),
		specification.ByStatus{Status: q.Status},
		specification.NewestFirst{},
		specification.Page{Limit: q.Limit, Offset: q.Offset},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models)
}
