package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

type assessmentService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewAssessmentService(repo repositories.Repository, cacheManager *cache.CacheManager, logger *slog.Logger, validator *validator.Validator) AssessmentService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &assessmentService{
		repo:      repo,
		cache:     cacheManager,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

// ===== LIFECYCLE =====

func (s *assessmentService) Publish(ctx context.Context, assessmentID uint, userID string) (*models.Assessment, error) {
	s.logger.Info("Publishing assessment", "assessment_id", assessmentID, "user_id", userID)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		assessment, err := s.lockOwned(ctx, tx, assessmentID, userID, "publish")
		if err != nil {
			return err
		}
		if assessment.IsPublished() {
			return nil
		}

		active, err := tx.Pool().CountActive(ctx, assessmentID)
		if err != nil {
			return fmt.Errorf("failed to count pool: %w", err)
		}
		if active < assessment.QuestionCount {
			return NewBusinessRuleError("pool_size", ErrInsufficientPool, map[string]interface{}{
				"active_questions": active,
				"question_count":   assessment.QuestionCount,
			})
		}

		publishedAt := s.now()
		return tx.Assessment().UpdateStatus(ctx, assessmentID, models.StatusPublished, &publishedAt)
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateAssessmentCache(ctx, s.cache, assessmentID)

	s.logger.Info("Assessment published", "assessment_id", assessmentID)
	return s.reload(ctx, assessmentID)
}

func (s *assessmentService) Unpublish(ctx context.Context, assessmentID uint, userID string) (*models.Assessment, error) {
	s.logger.Info("Unpublishing assessment", "assessment_id", assessmentID, "user_id", userID)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		assessment, err := s.lockOwned(ctx, tx, assessmentID, userID, "unpublish")
		if err != nil {
			return err
		}
		if !assessment.IsPublished() {
			return nil
		}
		return tx.Assessment().UpdateStatus(ctx, assessmentID, models.StatusDraft, nil)
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateAssessmentCache(ctx, s.cache, assessmentID)

	return s.reload(ctx, assessmentID)
}

// Delete removes the assessment with its answers, attempts and pool, children first.
func (s *assessmentService) Delete(ctx context.Context, assessmentID uint, userID string) error {
	s.logger.Info("Deleting assessment", "assessment_id", assessmentID, "user_id", userID)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := s.lockOwned(ctx, tx, assessmentID, userID, "delete"); err != nil {
			return err
		}

		if err := tx.Answer().DeleteByAssessment(ctx, assessmentID); err != nil {
			return fmt.Errorf("failed to delete answers: %w", err)
		}
		if err := tx.Attempt().DeleteByAssessment(ctx, assessmentID); err != nil {
			return fmt.Errorf("failed to delete attempts: %w", err)
		}
		if err := tx.Pool().DeleteByAssessment(ctx, assessmentID); err != nil {
			return fmt.Errorf("failed to delete pool: %w", err)
		}
		if err := tx.Assessment().Delete(ctx, assessmentID); err != nil {
			return fmt.Errorf("failed to delete assessment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Readers may have re-cached the old row before commit
	cache.InvalidateAssessmentCache(ctx, s.cache, assessmentID)
	cache.InvalidateResultCache(ctx, s.cache, assessmentID)
	s.logger.Info("Assessment deleted", "assessment_id", assessmentID)
	return nil
}

// ===== POOL =====

func (s *assessmentService) AddToPool(ctx context.Context, assessmentID uint, req *models.PoolUpdateRequest, userID string) (int, error) {
	if err := s.validator.Validate(req); err != nil {
		return 0, err
	}
	if _, err := s.getOwned(ctx, assessmentID, userID, "update_pool"); err != nil {
		return 0, err
	}

	ids := uniqueIDs(req.QuestionIDs)
	found, err := s.repo.Question().GetByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load questions: %w", err)
	}
	var missing []uint
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("%w: %v", ErrQuestionNotFound, missing)
	}

	added, err := s.repo.Pool().Add(ctx, assessmentID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to add to pool: %w", err)
	}

	s.logger.Info("Pool updated",
		"assessment_id", assessmentID,
		"requested", len(ids),
		"added", added)
	return added, nil
}

func (s *assessmentService) RemoveFromPool(ctx context.Context, assessmentID uint, req *models.PoolUpdateRequest, userID string) (int, error) {
	if err := s.validator.Validate(req); err != nil {
		return 0, err
	}
	if _, err := s.getOwned(ctx, assessmentID, userID, "update_pool"); err != nil {
		return 0, err
	}

	removed, err := s.repo.Pool().Remove(ctx, assessmentID, uniqueIDs(req.QuestionIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to remove from pool: %w", err)
	}

	s.logger.Info("Pool entries removed", "assessment_id", assessmentID, "removed", removed)
	return removed, nil
}

func (s *assessmentService) ListPool(ctx context.Context, assessmentID uint, userID string) ([]uint, error) {
	if _, err := s.getOwned(ctx, assessmentID, userID, "read_pool"); err != nil {
		return nil, err
	}

	ids, err := s.repo.Pool().List(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pool: %w", err)
	}
	return ids, nil
}
