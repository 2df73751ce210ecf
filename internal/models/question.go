package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	TrueFalse    QuestionType = "true_false"
	FreeText     QuestionType = "free_text"
)

// HasOptions reports whether answers are chosen from an option list.
func (t QuestionType) HasOptions() bool {
	return t == SingleChoice || t == TrueFalse
}

type QuestionStatus string

const (
	QuestionActive   QuestionStatus = "active"
	QuestionInactive QuestionStatus = "inactive"
	QuestionArchived QuestionStatus = "archived"
)

type Question struct {
	ID     uint           `json:"id" gorm:"primaryKey"`
	Type   QuestionType   `json:"type" gorm:"not null;index"`
	Text   string         `json:"text" gorm:"type:text;not null" validate:"required"`
	Points int            `json:"points" gorm:"not null;default:1" validate:"min=1"`
	Status QuestionStatus `json:"status" gorm:"not null;default:active;index"`

	Options       datatypes.JSONSlice[QuestionOption] `json:"options" gorm:"type:jsonb"`
	CorrectAnswer string                              `json:"correct_answer" gorm:"type:text;not null"`
	Explanation   *string                             `json:"explanation" gorm:"type:text"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) IsActive() bool {
	return q.Status == QuestionActive
}

// OptionIDs returns the option identifiers in their authored order.
func (q *Question) OptionIDs() []string {
	ids := make([]string, len(q.Options))
	for i, opt := range q.Options {
		ids[i] = opt.ID
	}
	return ids
}
