package ai

import "context"

// UseCaseInput describes a generation request for department use cases.
type UseCaseInput struct {
	Department string
	Tasks      string
}

// EvaluationInput carries the user prompt and the use case it targets.
type EvaluationInput struct {
	UseCase string
	Prompt  string
}

// Dimension statuses reported by the rubric.
const (
	StatusPresent   = "present"
	StatusPartially = "partially present"
	StatusMissing   = "missing"
)

// DimensionAssessment captures how strongly one rubric component is expressed.
type DimensionAssessment struct {
	Status      string `json:"status"`
	Explanation string `json:"explanation"`
}

// EvaluationResult is the structured rubric verdict for a single prompt.
type EvaluationResult struct {
	Role        DimensionAssessment `json:"role"`
	Action      DimensionAssessment `json:"action"`
	Context     DimensionAssessment `json:"context"`
	Format      DimensionAssessment `json:"format"`
	Tone        DimensionAssessment `json:"tone"`
	Techniques  []string            `json:"techniques"`
	Mismatches  []string            `json:"mismatches"`
	Suggestions []string            `json:"suggestions"`
	Score       float64             `json:"score"`
}

// Client is an LLM backend able to generate use cases and score prompts.
type Client interface {
	GenerateUseCases(ctx context.Context, input UseCaseInput) ([]string, error)
	EvaluatePrompt(ctx context.Context, input EvaluationInput) (EvaluationResult, error)
}
