package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{db: db}
}

func (e *EnrollmentPostgreSQL) IsEnrolled(ctx context.Context, groupID uint, takerID string) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("group_id = ? AND taker_id = ? AND status = ?", groupID, takerID, models.EnrollmentActive).
		Count(&count).Error
	if err != nil {
		return false, translateError(err, "check enrollment")
	}
	return count > 0, nil
}

func (e *EnrollmentPostgreSQL) Upsert(ctx context.Context, enrollment *models.Enrollment) error {
	err := e.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "taker_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status"}),
		}).
		Create(enrollment).Error
	return translateError(err, "upsert enrollment")
}
