package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

type AssessmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAssessmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AssessmentPostgreSQL) Create(ctx context.Context, assessment *models.Assessment) error {
	return translateError(a.db.WithContext(ctx).Create(assessment).Error, "create assessment")
}

func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	cacheKey := cache.AssessmentKey(id)
	var assessment models.Assessment

	err := a.cacheManager.Assessment.CacheOrExecute(ctx, cacheKey, &assessment, cache.AssessmentCacheConfig.TTL, func() (interface{}, error) {
		var dbAssessment models.Assessment
		if err := a.db.WithContext(ctx).First(&dbAssessment, id).Error; err != nil {
			return nil, translateError(err, "get assessment")
		}
		return &dbAssessment, nil
	})
	if err != nil {
		return nil, err
	}

	return &assessment, nil
}

func (a *AssessmentPostgreSQL) GetByIDForUpdate(ctx context.Context, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&assessment, id).Error
	if err != nil {
		return nil, translateError(err, "lock assessment")
	}
	return &assessment, nil
}

func (a *AssessmentPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.AssessmentStatus, publishedAt *time.Time) error {
	result := a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"published_at": publishedAt,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return translateError(result.Error, "update assessment status")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update assessment status: %w", repositories.ErrNotFound)
	}

	cache.InvalidateAssessmentCache(ctx, a.cacheManager, id)
	return nil
}

func (a *AssessmentPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := a.db.WithContext(ctx).Delete(&models.Assessment{}, id)
	if result.Error != nil {
		return translateError(result.Error, "delete assessment")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete assessment: %w", repositories.ErrNotFound)
	}

	cache.InvalidateAssessmentCache(ctx, a.cacheManager, id)
	return nil
}
