package memory

import (
	"context"
	"sort"
	"time"

	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// RunRepository keeps recent runs in memory. When a backing repository is
// given every save is written through to it and cache misses fall back to it.
type RunRepository struct {
	cache   *cache.Cache
	backing contract.RunRepository
}

func NewRunRepository(backing contract.RunRepository) *RunRepository {
	// Runs stay hot for an hour; expired items are purged every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &RunRepository{
		cache:   c,
		backing: backing,
	}
}

func (r *RunRepository) Save(ctx context.Context, run *entity.Run) error {
	if r.backing != nil {
		if err := r.backing.Save(ctx, run); err != nil {
			return err
		}
	}
	r.cache.Set(run.Id.String(), snapshot(run), cache.DefaultExpiration)
	return nil
}

func (r *RunRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	if x, found := r.cache.Get(id.String()); found {
		return snapshot(x.(*entity.Run)), nil
	}
	if r.backing == nil {
		return nil, nil
	}
	run, err := r.backing.FindById(ctx, id)
	if err != nil || run == nil {
		return run, err
	}
	r.cache.Set(id.String(), snapshot(run), cache.DefaultExpiration)
	return run, nil
}

// FindAll lists newest first. With a backing store the store is authoritative.
func (r *RunRepository) FindAll(ctx context.Context, q contract.RunQuery) ([]*entity.Run, error) {
	if r.backing != nil {
		return r.backing.FindAll(ctx, q)
	}

	items := r.cache.Items()
	runs := make([]*entity.Run, 0, len(items))
	for _, item := range items {
		run := item.Object.(*entity.Run)
		if q.Status != "" && run.Status != q.Status {
			continue
		}
		runs = append(runs, snapshot(run))
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	offset := max(q.Offset, 0)
	if offset >= len(runs) {
		return []*entity.Run{}, nil
	}
	runs = runs[offset:]
	if q.Limit > 0 && q.Limit < len(runs) {
		runs = runs[:q.Limit]
	}
	return runs, nil
}

// snapshot detaches a run from the caller so later mutation does not leak into the cache
func snapshot(run *entity.Run) *entity.Run {
	out := *run
	out.Initial = run.Initial.Clone()
	if run.State != nil {
		state := run.State.Clone()
		out.State = &state
	}
	return &out
}
