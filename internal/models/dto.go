package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ===== REQUEST DTOS =====

type AttemptStartRequest struct {
	AssessmentID uint `json:"assessment_id" validate:"required"`
}

type SubmitAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Response   string `json:"response" validate:"response_text"`
}

// FinalizeAttemptRequest carries answers the client has not yet sent.
// They are applied best-effort before the attempt is scored: entries that
// fail SubmitAnswerRequest validation are skipped, not rejected.
type FinalizeAttemptRequest struct {
	Answers []SubmitAnswerRequest `json:"answers" validate:"omitempty,max=500"`
}

type PoolUpdateRequest struct {
	QuestionIDs []uint `json:"question_ids" validate:"required,min=1,max=1000,dive,gt=0"`
}

// ===== ATTEMPT VIEWS =====

// AttemptQuestionView is a question as shown to a taker. It never carries the answer key.
type AttemptQuestionView struct {
	Position   int              `json:"position"`
	QuestionID uint             `json:"question_id"`
	Type       QuestionType     `json:"type"`
	Text       string           `json:"text"`
	Points     int              `json:"points"`
	Options    []QuestionOption `json:"options,omitempty"`
}

type AttemptView struct {
	AttemptID     uint                  `json:"attempt_id"`
	AssessmentID  uint                  `json:"assessment_id"`
	AttemptNumber int                   `json:"attempt_number"`
	Status        AttemptStatus         `json:"status"`
	StartedAt     time.Time             `json:"started_at"`
	ExpiresAt     *time.Time            `json:"expires_at,omitempty"`
	Questions     []AttemptQuestionView `json:"questions"`
	Answers       map[uint]string       `json:"answers,omitempty"`
}

type AttemptSummary struct {
	AttemptID      uint                `json:"attempt_id"`
	AttemptNumber  int                 `json:"attempt_number"`
	Status         AttemptStatus       `json:"status"`
	StartedAt      time.Time           `json:"started_at"`
	FinalizedAt    *time.Time          `json:"finalized_at,omitempty"`
	ElapsedSeconds *int                `json:"elapsed_seconds,omitempty"`
	EarnedPoints   *int                `json:"earned_points,omitempty"`
	TotalPoints    *int                `json:"total_points,omitempty"`
	Percentage     decimal.NullDecimal `json:"percentage"`
	Passed         *bool               `json:"passed,omitempty"`
}

type EligibilityView struct {
	AssessmentID uint   `json:"assessment_id"`
	AttemptsUsed int    `json:"attempts_used"`
	MaxAttempts  int    `json:"max_attempts"`
	CanStart     bool   `json:"can_start"`
	Reason       string `json:"reason,omitempty"`
}

// ===== RESULT VIEWS =====

type ScoreSummary struct {
	TotalPoints    int             `json:"total_points"`
	EarnedPoints   int             `json:"earned_points"`
	Percentage     decimal.Decimal `json:"percentage"`
	PassingScore   int             `json:"passing_score"`
	Passed         bool            `json:"passed"`
	StartedAt      time.Time       `json:"started_at"`
	FinalizedAt    time.Time       `json:"finalized_at"`
	ElapsedSeconds int             `json:"elapsed_seconds"`
}

type ResultQuestionView struct {
	Position      int              `json:"position"`
	QuestionID    uint             `json:"question_id"`
	Type          QuestionType     `json:"type"`
	Text          string           `json:"text"`
	Options       []QuestionOption `json:"options,omitempty"`
	Response      *string          `json:"response"`
	IsCorrect     bool             `json:"is_correct"`
	PointsEarned  int              `json:"points_earned"`
	Points        int              `json:"points"`
	CorrectAnswer string           `json:"correct_answer"`
	Explanation   *string          `json:"explanation,omitempty"`
}

type ResultView struct {
	AttemptID       uint                 `json:"attempt_id"`
	AssessmentID    uint                 `json:"assessment_id"`
	AssessmentTitle string               `json:"assessment_title"`
	TakerID         string               `json:"taker_id"`
	Summary         ScoreSummary         `json:"summary"`
	ShowResults     bool                 `json:"show_results"`
	Questions       []ResultQuestionView `json:"questions,omitempty"`
}

// ResultRow is one finalized attempt as consumed by reports and exports.
type ResultRow struct {
	Rank           int             `json:"rank"`
	AttemptID      uint            `json:"attempt_id"`
	AttemptNumber  int             `json:"attempt_number"`
	TakerID        string          `json:"taker_id"`
	StudentName    string          `json:"student_name"`
	Percentage     decimal.Decimal `json:"percentage"`
	EarnedPoints   int             `json:"earned_points"`
	TotalPoints    int             `json:"total_points"`
	Passed         bool            `json:"passed"`
	StartedAt      time.Time       `json:"started_at"`
	FinalizedAt    time.Time       `json:"finalized_at"`
	ElapsedSeconds int             `json:"elapsed_seconds"`
}
