package dto

// GenerateUseCasesRequest captures the generation form payload.
type GenerateUseCasesRequest struct {
	Department string `json:"department" validate:"required,min=2,max=120"`
	Tasks      string `json:"tasks" validate:"omitempty,max=2000"`
}

// GenerateUseCasesResponse returns the four generated use cases.
type GenerateUseCasesResponse struct {
	UseCases []string `json:"use_cases"`
}
