package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	return translateError(q.db.WithContext(ctx).Create(question).Error, "create question")
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	cacheKey := cache.QuestionKey(id)
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := q.db.WithContext(ctx).First(&dbQuestion, id).Error; err != nil {
			return nil, translateError(err, "get question")
		}
		return &dbQuestion, nil
	})
	if err != nil {
		return nil, err
	}

	return &question, nil
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Question, error) {
	result := make(map[uint]*models.Question, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	missing := make([]uint, 0, len(ids))
	for _, id := range ids {
		var cached models.Question
		err := q.cacheManager.Question.Get(ctx, cache.QuestionKey(id), &cached)
		if err == nil {
			result[id] = &cached
			continue
		}
		if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
			slog.WarnContext(ctx, "Question cache read failed", "error", err, "question_id", id)
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return result, nil
	}

	var questions []*models.Question
	if err := q.db.WithContext(ctx).Where("id IN ?", missing).Find(&questions).Error; err != nil {
		return nil, translateError(err, "get questions")
	}

	items := make(map[string]interface{}, len(questions))
	for _, question := range questions {
		result[question.ID] = question
		items[cache.QuestionKey(question.ID)] = question
	}
	if err := q.cacheManager.Question.SetMultiple(ctx, items, cache.QuestionCacheConfig.TTL); err != nil {
		slog.WarnContext(ctx, "Question cache write failed", "error", err, "count", len(items))
	}

	return result, nil
}

func (q *QuestionPostgreSQL) GetByIDsUncached(ctx context.Context, ids []uint) (map[uint]*models.Question, error) {
	result := make(map[uint]*models.Question, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var questions []*models.Question
	if err := q.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, translateError(err, "get questions")
	}
	for _, question := range questions {
		result[question.ID] = question
	}
	return result, nil
}

func (q *QuestionPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.QuestionStatus) error {
	result := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return translateError(result.Error, "update question status")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update question status: %w", repositories.ErrNotFound)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id)
	return nil
}
