package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

type PoolPostgreSQL struct {
	db *gorm.DB
}

func NewPoolPostgreSQL(db *gorm.DB) repositories.PoolRepository {
	return &PoolPostgreSQL{db: db}
}

func (p *PoolPostgreSQL) Add(ctx context.Context, assessmentID uint, questionIDs []uint) (int, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}

	entries := make([]models.PoolEntry, 0, len(questionIDs))
	for _, questionID := range questionIDs {
		entries = append(entries, models.PoolEntry{
			AssessmentID: assessmentID,
			QuestionID:   questionID,
		})
	}

	// Existing pairs are left alone so re-adding is a no-op.
	result := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assessment_id"}, {Name: "question_id"}},
			DoNothing: true,
		}).
		Create(&entries)
	if result.Error != nil {
		return 0, translateError(result.Error, "add pool entries")
	}

	return int(result.RowsAffected), nil
}

func (p *PoolPostgreSQL) Remove(ctx context.Context, assessmentID uint, questionIDs []uint) (int, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}

	result := p.db.WithContext(ctx).
		Where("assessment_id = ? AND question_id IN ?", assessmentID, questionIDs).
		Delete(&models.PoolEntry{})
	if result.Error != nil {
		return 0, translateError(result.Error, "remove pool entries")
	}

	return int(result.RowsAffected), nil
}

func (p *PoolPostgreSQL) List(ctx context.Context, assessmentID uint) ([]uint, error) {
	var ids []uint
	err := p.db.WithContext(ctx).
		Model(&models.PoolEntry{}).
		Where("assessment_id = ?", assessmentID).
		Order("id ASC").
		Pluck("question_id", &ids).Error
	if err != nil {
		return nil, translateError(err, "list pool entries")
	}
	return ids, nil
}

func (p *PoolPostgreSQL) ListActive(ctx context.Context, assessmentID uint) ([]uint, error) {
	var ids []uint
	err := p.activeQuery(ctx, assessmentID).
		Order("p.id ASC").
		Pluck("p.question_id", &ids).Error
	if err != nil {
		return nil, translateError(err, "list active pool entries")
	}
	return ids, nil
}

func (p *PoolPostgreSQL) CountActive(ctx context.Context, assessmentID uint) (int, error) {
	var count int64
	if err := p.activeQuery(ctx, assessmentID).Count(&count).Error; err != nil {
		return 0, translateError(err, "count active pool entries")
	}
	return int(count), nil
}

func (p *PoolPostgreSQL) DeleteByAssessment(ctx context.Context, assessmentID uint) error {
	err := p.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Delete(&models.PoolEntry{}).Error
	return translateError(err, "delete pool entries")
}

func (p *PoolPostgreSQL) activeQuery(ctx context.Context, assessmentID uint) *gorm.DB {
	return p.db.WithContext(ctx).
		Table(models.PoolEntry{}.TableName()+" AS p").
		Joins("JOIN "+models.Question{}.TableName()+" AS q ON q.id = p.question_id").
		Where("p.assessment_id = ? AND q.status = ?", assessmentID, models.QuestionActive)
}
