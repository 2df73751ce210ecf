package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	// Core attempt operations
	Start(ctx context.Context, assessmentID uint, takerID string) (*models.AttemptView, error)
	Resume(ctx context.Context, attemptID uint, takerID string) (*models.AttemptView, error)
	RecordAnswer(ctx context.Context, attemptID uint, req *models.SubmitAnswerRequest, takerID string) error
	Finalize(ctx context.Context, attemptID uint, req *models.FinalizeAttemptRequest, takerID string) (*models.ResultView, error)

	// Eligibility and history
	CheckEligibility(ctx context.Context, assessmentID uint, takerID string) (*models.EligibilityView, error)
	ListMine(ctx context.Context, assessmentID uint, takerID string) ([]*models.AttemptSummary, error)
}

type ResultService interface {
	// GetResult is readable by the attempt's taker and the assessment owner.
	GetResult(ctx context.Context, attemptID uint, userID string) (*models.ResultView, error)

	// Owner-only reports over finalized attempts
	ListResults(ctx context.Context, assessmentID uint, userID string) ([]*models.ResultRow, error)
	ExportResults(ctx context.Context, assessmentID uint, userID string) (*ExportFile, error)
}

type AssessmentService interface {
	// Lifecycle, owner-only
	Publish(ctx context.Context, assessmentID uint, userID string) (*models.Assessment, error)
	Unpublish(ctx context.Context, assessmentID uint, userID string) (*models.Assessment, error)
	Delete(ctx context.Context, assessmentID uint, userID string) error

	// Pool management, owner-only
	AddToPool(ctx context.Context, assessmentID uint, req *models.PoolUpdateRequest, userID string) (int, error)
	RemoveFromPool(ctx context.Context, assessmentID uint, req *models.PoolUpdateRequest, userID string) (int, error)
	ListPool(ctx context.Context, assessmentID uint, userID string) ([]uint, error)
}

// ExportFile is a rendered report ready to be sent to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// AttemptPolicy controls deadline enforcement on answer writes.
type AttemptPolicy struct {
	// HardCutoff rejects answers once the attempt deadline plus Grace has passed.
	HardCutoff bool
	Grace      time.Duration
}

type ServiceManager interface {
	Initialize(ctx context.Context) error

	Attempt() AttemptService
	Result() ResultService
	Assessment() AssessmentService

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
