package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

// AttemptPostgreSQL never caches attempts: status checks must see the committed row.
type AttemptPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.AssessmentAttempt) error {
	return translateError(a.db.WithContext(ctx).Create(attempt).Error, "create attempt")
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.AssessmentAttempt, error) {
	var attempt models.AssessmentAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, translateError(err, "get attempt")
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDForShare(ctx context.Context, id uint) (*models.AssessmentAttempt, error) {
	var attempt models.AssessmentAttempt
	err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		First(&attempt, id).Error
	if err != nil {
		return nil, translateError(err, "lock attempt")
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) CountByTaker(ctx context.Context, assessmentID uint, takerID string) (int, error) {
	count, err := a.helpers.CountAttemptsByTaker(ctx, assessmentID, takerID)
	if err != nil {
		return 0, translateError(err, "count attempts")
	}
	return int(count), nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.AssessmentAttempt, error) {
	var attempts []*models.AssessmentAttempt

	query := a.db.WithContext(ctx).Model(&models.AssessmentAttempt{})
	query = a.helpers.ApplyAttemptFilters(query, filters)
	query = a.helpers.ApplyPagination(query.Order("created_at DESC").Order("id DESC"), filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, translateError(err, "list attempts")
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) MarkFinalized(ctx context.Context, id uint, finalizedAt time.Time) (bool, error) {
	// Conditional transition: only the caller that still sees status=active wins.
	result := a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptActive).
		Updates(map[string]interface{}{
			"status":       models.AttemptFinalized,
			"finalized_at": finalizedAt,
			"updated_at":   finalizedAt,
		})
	if result.Error != nil {
		return false, translateError(result.Error, "finalize attempt")
	}
	return result.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) SaveScore(ctx context.Context, id uint, score repositories.AttemptScore) error {
	err := a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"elapsed_seconds": score.ElapsedSeconds,
			"total_points":    score.TotalPoints,
			"earned_points":   score.EarnedPoints,
			"percentage":      score.Percentage,
			"passed":          score.Passed,
			"updated_at":      score.FinalizedAt,
		}).Error
	return translateError(err, "save attempt score")
}

func (a *AttemptPostgreSQL) DeleteByAssessment(ctx context.Context, assessmentID uint) error {
	err := a.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Delete(&models.AssessmentAttempt{}).Error
	return translateError(err, "delete attempts")
}
