package dto

import (
	"time"

	"github.com/promptlab-dev/promptlab-api/internal/models"
)

// AdminEvaluationResponse is one joined row in the admin rollup table.
type AdminEvaluationResponse struct {
	ID            uint      `json:"id"`
	UserName      string    `json:"user_name"`
	UserEmail     string    `json:"user_email"`
	UseCase       *string   `json:"use_case"`
	CustomUseCase *string   `json:"custom_use_case"`
	Prompt        string    `json:"prompt"`
	Score         float64   `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewAdminEvaluationResponse joins an evaluation with its resolved identity.
// Evaluations without a matching user still render, with placeholder identity.
func NewAdminEvaluationResponse(evaluation models.PromptEvaluation, user *models.User) AdminEvaluationResponse {
	name := "Unknown User"
	email := "Unknown Email"
	if user != nil {
		name = user.Name
		email = user.Email
	}

	return AdminEvaluationResponse{
		ID:            evaluation.ID,
		UserName:      name,
		UserEmail:     email,
		UseCase:       evaluation.UseCase,
		CustomUseCase: evaluation.CustomUseCase,
		Prompt:        evaluation.Prompt,
		Score:         evaluation.Score,
		CreatedAt:     evaluation.CreatedAt,
	}
}

// AdminSummaryResponse aggregates the recent-evaluation statistics shown on
// the admin dashboard cards.
type AdminSummaryResponse struct {
	TotalEvaluations int       `json:"total_evaluations"`
	AverageScore     string    `json:"average_score"`
	UniqueUsers      int       `json:"unique_users"`
	GeneratedAt      time.Time `json:"generated_at"`
	CacheHit         bool      `json:"cache_hit"`
}
