package contract

import (
	"context"

	"ai-codereview-be/internal/entity"

	"github.com/google/uuid"
)

// RunRepository stores submitted runs. FindById returns nil, nil for unknown ids.
type RunRepository interface {
	Save(ctx context.Context, run *entity.Run) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	FindAll(ctx context.Context, q RunQuery) ([]*entity.Run, error)
}

// RunQuery lists runs newest first. Empty Status matches every run; Limit <= 0 means no limit.
type RunQuery struct {
	Status entity.RunStatus
	Limit  int
	Offset int
}
