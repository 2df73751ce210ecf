package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	AssessmentID *uint                 `json:"assessment_id"`
	TakerID      *string               `json:"taker_id"`
	Status       *models.AttemptStatus `json:"status"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// AttemptScore is the aggregate written to an attempt when it is finalized.
type AttemptScore struct {
	FinalizedAt    time.Time
	ElapsedSeconds int
	TotalPoints    int
	EarnedPoints   int
	Percentage     decimal.Decimal
	Passed         bool
}

// AnswerGrade is the per-answer outcome written at finalization.
type AnswerGrade struct {
	QuestionID   uint
	IsCorrect    bool
	PointsEarned int
}

// ===== ASSESSMENT =====

type AssessmentRepository interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	GetByID(ctx context.Context, id uint) (*models.Assessment, error)
	// GetByIDForUpdate locks the assessment row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Assessment, error)
	UpdateStatus(ctx context.Context, id uint, status models.AssessmentStatus, publishedAt *time.Time) error
	Delete(ctx context.Context, id uint) error
}

// ===== POOL =====

type PoolRepository interface {
	// Add inserts the missing (assessment, question) pairs and returns how many were new.
	Add(ctx context.Context, assessmentID uint, questionIDs []uint) (int, error)
	Remove(ctx context.Context, assessmentID uint, questionIDs []uint) (int, error)
	List(ctx context.Context, assessmentID uint) ([]uint, error)
	// ListActive returns pool members whose question is currently active.
	ListActive(ctx context.Context, assessmentID uint) ([]uint, error)
	CountActive(ctx context.Context, assessmentID uint) (int, error)
	DeleteByAssessment(ctx context.Context, assessmentID uint) error
}

// ===== ENROLLMENT =====

type EnrollmentRepository interface {
	IsEnrolled(ctx context.Context, groupID uint, takerID string) (bool, error)
	Upsert(ctx context.Context, enrollment *models.Enrollment) error
}

// ===== ATTEMPT =====

type AttemptRepository interface {
	// Create inserts the attempt. It returns ErrDuplicate when the
	// (assessment, taker, attempt number) slot is already taken.
	Create(ctx context.Context, attempt *models.AssessmentAttempt) error
	GetByID(ctx context.Context, id uint) (*models.AssessmentAttempt, error)
	// GetByIDForShare reads the attempt and blocks concurrent finalization
	// until the surrounding transaction ends.
	GetByIDForShare(ctx context.Context, id uint) (*models.AssessmentAttempt, error)
	CountByTaker(ctx context.Context, assessmentID uint, takerID string) (int, error)
	List(ctx context.Context, filters AttemptFilters) ([]*models.AssessmentAttempt, error)
	// MarkFinalized flips an active attempt to finalized. It reports false when
	// the attempt was not active, leaving the row untouched.
	MarkFinalized(ctx context.Context, id uint, finalizedAt time.Time) (bool, error)
	SaveScore(ctx context.Context, id uint, score AttemptScore) error
	DeleteByAssessment(ctx context.Context, assessmentID uint) error
}

// ===== ANSWER LEDGER =====

type AnswerRepository interface {
	// Upsert writes the latest response for (attempt, question). Last write wins.
	Upsert(ctx context.Context, answer *models.AttemptAnswer) error
	ListByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error)
	SaveGrades(ctx context.Context, attemptID uint, grades []AnswerGrade) error
	DeleteByAssessment(ctx context.Context, assessmentID uint) error
}
