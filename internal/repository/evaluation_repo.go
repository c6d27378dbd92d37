package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/promptlab-dev/promptlab-api/internal/models"
)

// EvaluationRepository defines data operations for prompt evaluations. The
// table is append-only: there are no update or delete operations.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.PromptEvaluation) error
	GetByID(ctx context.Context, id uint) (models.PromptEvaluation, error)
	ListByUser(ctx context.Context, userID uint) ([]models.PromptEvaluation, error)
	ListRecent(ctx context.Context, window time.Duration) ([]models.PromptEvaluation, error)
}

type evaluationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db, now: time.Now}
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.PromptEvaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.PromptEvaluation, error) {
	var evaluation models.PromptEvaluation
	if err := r.db.WithContext(ctx).First(&evaluation, id).Error; err != nil {
		return models.PromptEvaluation{}, err
	}

	return evaluation, nil
}

func (r *evaluationRepository) ListByUser(ctx context.Context, userID uint) ([]models.PromptEvaluation, error) {
	var evaluations []models.PromptEvaluation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&evaluations).Error; err != nil {
		return nil, err
	}

	return evaluations, nil
}

func (r *evaluationRepository) ListRecent(ctx context.Context, window time.Duration) ([]models.PromptEvaluation, error) {
	cutoff := r.now().Add(-window)

	// created_at ASC breaks score ties so the rollup ordering is stable.
	var evaluations []models.PromptEvaluation
	if err := r.db.WithContext(ctx).
		Where("created_at >= ?", cutoff).
		Order("score DESC").
		Order("created_at ASC").
		Find(&evaluations).Error; err != nil {
		return nil, err
	}

	return evaluations, nil
}
