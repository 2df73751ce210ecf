package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) Upsert(ctx context.Context, answer *models.AttemptAnswer) error {
	// INSERT ... ON CONFLICT (attempt_id, question_id) DO UPDATE keeps one row per pair.
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"response", "answered_at", "updated_at"}),
		}).
		Create(answer).Error
	return translateError(err, "upsert answer")
}

func (a *AnswerPostgreSQL) ListByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error) {
	var answers []*models.AttemptAnswer
	err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, translateError(err, "list answers")
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) SaveGrades(ctx context.Context, attemptID uint, grades []repositories.AnswerGrade) error {
	for _, grade := range grades {
		err := a.db.WithContext(ctx).
			Model(&models.AttemptAnswer{}).
			Where("attempt_id = ? AND question_id = ?", attemptID, grade.QuestionID).
			Updates(map[string]interface{}{
				"is_correct":    grade.IsCorrect,
				"points_earned": grade.PointsEarned,
			}).Error
		if err != nil {
			return translateError(err, "save answer grade")
		}
	}
	return nil
}

func (a *AnswerPostgreSQL) DeleteByAssessment(ctx context.Context, assessmentID uint) error {
	attemptIDs := a.db.Model(&models.AssessmentAttempt{}).
		Select("id").
		Where("assessment_id = ?", assessmentID)

	err := a.db.WithContext(ctx).
		Where("attempt_id IN (?)", attemptIDs).
		Delete(&models.AttemptAnswer{}).Error
	return translateError(err, "delete answers")
}
