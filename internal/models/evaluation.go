package models

import (
	"time"

	"gorm.io/datatypes"
)

// PromptEvaluation captures one scored prompt submission. Records are
// append-only: editing a prior evaluation produces a new row.
//
// Exactly one of UseCase and CustomUseCase is set, depending on whether the
// user picked a generated use case or wrote their own.
type PromptEvaluation struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	UseCase       *string        `gorm:"type:text" json:"use_case"`
	CustomUseCase *string        `gorm:"type:text" json:"custom_use_case"`
	Prompt        string         `gorm:"type:text;not null" json:"prompt"`
	Result        datatypes.JSON `gorm:"not null" json:"evaluation_result"`
	Score         float64        `gorm:"not null;index" json:"score"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	User          User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
