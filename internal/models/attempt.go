package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptActive    AttemptStatus = "active"
	AttemptFinalized AttemptStatus = "finalized"
)

// OptionOrder maps a question to the option order shown to one attempt.
type OptionOrder map[uint][]string

type AssessmentAttempt struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	AssessmentID  uint          `json:"assessment_id" gorm:"not null;index;uniqueIndex:idx_attempt_taker_number"`
	TakerID       string        `json:"taker_id" gorm:"not null;index;size:255;uniqueIndex:idx_attempt_taker_number"`
	AttemptNumber int           `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempt_taker_number"`
	Status        AttemptStatus `json:"status" gorm:"not null;default:active;index"`

	// Written once at creation.
	QuestionOrder datatypes.JSONSlice[uint]       `json:"question_order" gorm:"type:jsonb;not null"`
	OptionOrder   datatypes.JSONType[OptionOrder] `json:"option_order" gorm:"type:jsonb"`

	// Timing
	CreatedAt      time.Time  `json:"created_at"`
	FinalizedAt    *time.Time `json:"finalized_at"`
	ElapsedSeconds *int       `json:"elapsed_seconds"`

	// Scoring, populated at finalization
	TotalPoints  *int                `json:"total_points"`
	EarnedPoints *int                `json:"earned_points"`
	Percentage   decimal.NullDecimal `json:"percentage" gorm:"type:numeric"`
	Passed       *bool               `json:"passed"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}

func (a *AssessmentAttempt) IsFinalized() bool {
	return a.Status == AttemptFinalized
}

// HasQuestion reports whether questionID belongs to the attempt's fixed sample.
func (a *AssessmentAttempt) HasQuestion(questionID uint) bool {
	for _, id := range a.QuestionOrder {
		if id == questionID {
			return true
		}
	}
	return false
}

type AttemptAnswer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	AttemptID  uint   `json:"attempt_id" gorm:"not null;index;uniqueIndex:idx_answer_attempt_question"`
	QuestionID uint   `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	Response   string `json:"response" gorm:"type:text;not null"`

	// Grading, written at finalization
	IsCorrect    *bool `json:"is_correct"`
	PointsEarned int   `json:"points_earned" gorm:"not null;default:0"`

	AnsweredAt time.Time `json:"answered_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
