package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/promptlab-dev/promptlab-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.PromptEvaluation{}))
	return db
}

func seedEvaluation(t *testing.T, db *gorm.DB, userID uint, score float64, createdAt time.Time) models.PromptEvaluation {
	t.Helper()
	useCase := "Summarize weekly reports"
	evaluation := models.PromptEvaluation{
		UserID:    userID,
		UseCase:   &useCase,
		Prompt:    "Summarize the attached report.",
		Result:    datatypes.JSON([]byte(`{"score": 5}`)),
		Score:     score,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&evaluation).Error)
	return evaluation
}

func TestEvaluationRepositoryListByUserNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)
	now := time.Now()

	seedEvaluation(t, db, 1, 4, now.Add(-2*time.Hour))
	seedEvaluation(t, db, 1, 9, now.Add(-1*time.Hour))
	seedEvaluation(t, db, 2, 7, now.Add(-30*time.Minute))

	evaluations, err := repo.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, evaluations, 2)
	require.Equal(t, float64(9), evaluations[0].Score, "expected newest record first")
	require.Equal(t, float64(4), evaluations[1].Score)
}

func TestEvaluationRepositoryListRecentOrdersByScoreThenAge(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	repo := &evaluationRepository{db: db, now: func() time.Time { return now }}

	seedEvaluation(t, db, 1, 6, now.Add(-3*time.Hour))
	seedEvaluation(t, db, 2, 8, now.Add(-2*time.Hour))
	tieOlder := seedEvaluation(t, db, 3, 6, now.Add(-6*time.Hour))
	seedEvaluation(t, db, 4, 9, now.Add(-48*time.Hour))

	evaluations, err := repo.ListRecent(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, evaluations, 3, "records outside the window are excluded")
	require.Equal(t, float64(8), evaluations[0].Score)
	require.Equal(t, tieOlder.ID, evaluations[1].ID, "ties break towards the older record")
	require.Equal(t, float64(6), evaluations[2].Score)
}

func TestEvaluationRepositoryCreateAssignsID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)

	custom := "Draft a launch announcement"
	evaluation := models.PromptEvaluation{
		UserID:        7,
		CustomUseCase: &custom,
		Prompt:        "Write the announcement.",
		Result:        datatypes.JSON([]byte(`{"score": 3}`)),
		Score:         3,
	}
	require.NoError(t, repo.Create(context.Background(), &evaluation))
	require.NotZero(t, evaluation.ID)

	stored, err := repo.GetByID(context.Background(), evaluation.ID)
	require.NoError(t, err)
	require.Nil(t, stored.UseCase)
	require.NotNil(t, stored.CustomUseCase)
	require.Equal(t, custom, *stored.CustomUseCase)
}
