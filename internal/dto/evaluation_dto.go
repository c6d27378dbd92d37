package dto

import (
	"encoding/json"
	"time"

	"github.com/promptlab-dev/promptlab-api/internal/models"
	"github.com/promptlab-dev/promptlab-api/pkg/ai"
)

// EvaluatePromptRequest captures an evaluation submission. Exactly one of
// UseCase and CustomUseCase must be set; the service enforces this.
type EvaluatePromptRequest struct {
	UseCase       string `json:"use_case" validate:"omitempty,max=2000"`
	CustomUseCase string `json:"custom_use_case" validate:"omitempty,max=2000"`
	Prompt        string `json:"prompt" validate:"required,min=1,max=10000"`
}

// EvaluationResponse serializes a scored prompt for the submitting user.
// Saved reports whether the record reached the store; the evaluation itself is
// returned either way.
type EvaluationResponse struct {
	ID            uint                `json:"id,omitempty"`
	UseCase       *string             `json:"use_case"`
	CustomUseCase *string             `json:"custom_use_case"`
	Prompt        string              `json:"prompt"`
	Result        ai.EvaluationResult `json:"evaluation_result"`
	Score         float64             `json:"score"`
	Saved         bool                `json:"saved"`
	CreatedAt     time.Time           `json:"created_at"`
}

// NewEvaluationResponse converts a stored evaluation into a DTO. A result
// column that no longer decodes renders as the parser fallback rather than
// failing the listing.
func NewEvaluationResponse(model models.PromptEvaluation) EvaluationResponse {
	var result ai.EvaluationResult
	if err := json.Unmarshal(model.Result, &result); err != nil {
		result = ai.FallbackEvaluation()
	}

	return EvaluationResponse{
		ID:            model.ID,
		UseCase:       model.UseCase,
		CustomUseCase: model.CustomUseCase,
		Prompt:        model.Prompt,
		Result:        result,
		Score:         model.Score,
		Saved:         true,
		CreatedAt:     model.CreatedAt,
	}
}

// NewEvaluationResponseSlice converts a list of stored evaluations.
func NewEvaluationResponseSlice(evaluations []models.PromptEvaluation) []EvaluationResponse {
	responses := make([]EvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		responses = append(responses, NewEvaluationResponse(evaluation))
	}
	return responses
}

// EditSession is the typed hand-off used to reload a prior evaluation into the
// form. It is stored under a one-time token and consumed exactly once.
type EditSession struct {
	EvaluationID  uint    `json:"evaluation_id"`
	UseCase       *string `json:"use_case"`
	CustomUseCase *string `json:"custom_use_case"`
	Prompt        string  `json:"prompt"`
}

// EditSessionTokenResponse returns the handle for a created edit session.
type EditSessionTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
