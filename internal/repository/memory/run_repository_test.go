package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRun(request string, created time.Time) *entity.Run {
	return &entity.Run{
		Id:        uuid.New(),
		Status:    entity.RunStatusQueued,
		Initial:   entity.SessionState{Request: request, TargetFiles: []string{"x.py"}},
		CreatedAt: created,
	}
}

func TestSaveAndFindReturnsDetachedCopy(t *testing.T) {
	repo := NewRunRepository(nil)
	ctx := context.Background()
	run := newRun("a", time.Now())

	require.NoError(t, repo.Save(ctx, run))
	run.Initial.TargetFiles[0] = "mutated"
	run.Status = entity.RunStatusFailed

	got, err := repo.FindById(ctx, run.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusQueued, got.Status)
	assert.Equal(t, []string{"x.py"}, got.Initial.TargetFiles)

	missing, err := repo.FindById(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindAllNewestFirstWithPaging(t *testing.T) {
	repo := NewRunRepository(nil)
	ctx := context.Background()
	base := time.Now()
	for i, name := range []string{"old", "mid", "new"} {
		require.NoError(t, repo.Save(ctx, newRun(name, base.Add(time.Duration(i)*time.Minute))))
	}

	all, err := repo.FindAll(ctx, contract.RunQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].Initial.Request)
	assert.Equal(t, "old", all[2].Initial.Request)

	page, err := repo.FindAll(ctx, contract.RunQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "mid", page[0].Initial.Request)

	empty, err := repo.FindAll(ctx, contract.RunQuery{Limit: 10, Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindAllByStatus(t *testing.T) {
	repo := NewRunRepository(nil)
	ctx := context.Background()
	failed := newRun("failed", time.Now())
	failed.Status = entity.RunStatusFailed
	require.NoError(t, repo.Save(ctx, failed))
	require.NoError(t, repo.Save(ctx, newRun("queued", time.Now())))

	runs, err := repo.FindAll(ctx, contract.RunQuery{Status: entity.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Initial.Request)
}

type backingStub struct {
	saved   []*entity.Run
	stored  map[uuid.UUID]*entity.Run
	saveErr error
}

func (b *backingStub) Save(ctx context.Context, run *entity.Run) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saved = append(b.saved, run)
	return nil
}

func (b *backingStub) FindById(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	return b.stored[id], nil
}

func (b *backingStub) FindAll(ctx context.Context, q contract.RunQuery) ([]*entity.Run, error) {
	return []*entity.Run{}, nil
}

func TestWriteThroughAndFallback(t *testing.T) {
	ctx := context.Background()
	persisted := newRun("persisted", time.Now())
	backing := &backingStub{stored: map[uuid.UUID]*entity.Run{persisted.Id: persisted}}
	repo := NewRunRepository(backing)

	run := newRun("fresh", time.Now())
	require.NoError(t, repo.Save(ctx, run))
	assert.Len(t, backing.saved, 1)

	got, err := repo.FindById(ctx, persisted.Id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "persisted", got.Initial.Request)
}

func TestBackingFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	backing := &backingStub{saveErr: errors.New("db down"), stored: map[uuid.UUID]*entity.Run{}}
	repo := NewRunRepository(backing)
	run := newRun("x", time.Now())

	require.Error(t, repo.Save(ctx, run))
	got, err := repo.FindById(ctx, run.Id)
	require.NoError(t, err)
	assert.Nil(t, got)
}
