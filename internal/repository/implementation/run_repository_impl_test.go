package implementation

import (
	"context"
	"os"
	"testing"
	"time"

	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/model"
	"ai-codereview-be/internal/repository/contract"
	"ai-codereview-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepositoryAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ReviewRun{}))

	repo := NewRunRepository(db)
	ctx := context.Background()

	run := &entity.Run{
		Id:        uuid.New(),
		Status:    entity.RunStatusQueued,
		Initial:   entity.SessionState{Request: "integration", TargetFile: "x.py"},
		CreatedAt: time.Now().UTC(),
	}
	t.Cleanup(func() { db.Delete(&model.ReviewRun{}, "id = ?", run.Id) })

	require.NoError(t, repo.Save(ctx, run))

	run.Status = entity.RunStatusCompleted
	run.State = &entity.SessionState{Request: "integration", TargetFiles: []string{"x.py"}, ReviewCycles: 1, ReviewSatisfied: true}
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.FindById(ctx, run.Id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.RunStatusCompleted, got.Status)
	require.NotNil(t, got.State)
	assert.True(t, got.State.ReviewSatisfied)

	missing, err := repo.FindById(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	recent, err := repo.FindAll(ctx, contract.RunQuery{Status: entity.RunStatusCompleted, Limit: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, recent)
}
