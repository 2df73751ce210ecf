package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	"github.com/SAP-F-2025/attempt-engine/internal/export"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

type resultService struct {
	repo   repositories.Repository
	cache  *cache.CacheManager
	logger *slog.Logger
	now    func() time.Time
}

func NewResultService(repo repositories.Repository, cacheManager *cache.CacheManager, logger *slog.Logger) ResultService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &resultService{
		repo:   repo,
		cache:  cacheManager,
		logger: logger,
		now:    time.Now,
	}
}

func (s *resultService) GetResult(ctx context.Context, attemptID uint, userID string) (*models.ResultView, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, attempt.AssessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	isOwner := assessment.CreatedBy == userID
	if attempt.TakerID != userID && !isOwner {
		return nil, NewPermissionError(userID, attemptID, "attempt", "read_result", "not the taker or assessment owner")
	}
	if !attempt.IsFinalized() {
		return nil, ErrNotYetSubmitted
	}

	// Finalized views are immutable, so the cached copy is always current.
	// Visibility follows the live settings and is applied after the read.
	var view models.ResultView
	err = s.cache.Result.CacheOrExecute(ctx, cache.ResultKey(assessment.ID, attemptID), &view, cache.ResultCacheConfig.TTL, func() (interface{}, error) {
		return s.buildResult(ctx, assessment, attempt)
	})
	if err != nil {
		return nil, err
	}

	return applyVisibility(&view, assessment.Settings, isOwner), nil
}

func (s *resultService) ListResults(ctx context.Context, assessmentID uint, userID string) ([]*models.ResultRow, error) {
	if _, err := s.requireOwner(ctx, assessmentID, userID, "list_results"); err != nil {
		return nil, err
	}
	return s.resultRows(ctx, assessmentID)
}

func (s *resultService) ExportResults(ctx context.Context, assessmentID uint, userID string) (*ExportFile, error) {
	if _, err := s.requireOwner(ctx, assessmentID, userID, "export_results"); err != nil {
		return nil, err
	}

	rows, err := s.resultRows(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.WriteResults(&buf, rows); err != nil {
		return nil, fmt.Errorf("failed to render results: %w", err)
	}

	s.logger.Info("Results exported",
		"assessment_id", assessmentID,
		"user_id", userID,
		"rows", len(rows))

	return &ExportFile{
		Filename:    export.Filename(assessmentID, s.now()),
		ContentType: export.ContentTypeXLSX,
		Content:     buf.Bytes(),
	}, nil
}

// ===== HELPERS =====

func (s *resultService) buildResult(ctx context.Context, assessment *models.Assessment, attempt *models.AssessmentAttempt) (*models.ResultView, error) {
	questions, err := loadOrderedQuestions(ctx, s.repo.Question().GetByIDs, s.logger, attempt.QuestionOrder)
	if err != nil {
		return nil, err
	}

	answers, err := s.repo.Answer().ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	return buildResultView(assessment, attempt, questions, answers), nil
}

func (s *resultService) requireOwner(ctx context.Context, assessmentID uint, userID, action string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if assessment.CreatedBy != userID {
		return nil, NewPermissionError(userID, assessmentID, "assessment", action, "not owner")
	}
	return assessment, nil
}

// resultRows lists finalized attempts ranked by percentage, earliest
// submission first on ties.
func (s *resultService) resultRows(ctx context.Context, assessmentID uint) ([]*models.ResultRow, error) {
	status := models.AttemptFinalized
	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		AssessmentID: &assessmentID,
		Status:       &status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	names := s.displayNames(ctx, attempts)

	rows := make([]*models.ResultRow, 0, len(attempts))
	for _, a := range attempts {
		row := &models.ResultRow{
			AttemptID:     a.ID,
			AttemptNumber: a.AttemptNumber,
			TakerID:       a.TakerID,
			StudentName:   names[a.TakerID],
			Percentage:    a.Percentage.Decimal,
			StartedAt:     a.CreatedAt,
		}
		if a.EarnedPoints != nil {
			row.EarnedPoints = *a.EarnedPoints
		}
		if a.TotalPoints != nil {
			row.TotalPoints = *a.TotalPoints
		}
		if a.Passed != nil {
			row.Passed = *a.Passed
		}
		if a.FinalizedAt != nil {
			row.FinalizedAt = *a.FinalizedAt
		}
		if a.ElapsedSeconds != nil {
			row.ElapsedSeconds = *a.ElapsedSeconds
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].Percentage.Cmp(rows[j].Percentage); c != 0 {
			return c > 0
		}
		if !rows[i].FinalizedAt.Equal(rows[j].FinalizedAt) {
			return rows[i].FinalizedAt.Before(rows[j].FinalizedAt)
		}
		return rows[i].AttemptID < rows[j].AttemptID
	})
	for i, row := range rows {
		row.Rank = i + 1
	}
	return rows, nil
}

// displayNames resolves taker names, falling back to the taker id.
func (s *resultService) displayNames(ctx context.Context, attempts []*models.AssessmentAttempt) map[string]string {
	names := make(map[string]string, len(attempts))
	ids := make([]string, 0, len(attempts))
	for _, a := range attempts {
		if _, seen := names[a.TakerID]; !seen {
			names[a.TakerID] = a.TakerID
			ids = append(ids, a.TakerID)
		}
	}
	if len(ids) == 0 {
		return names
	}

	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve taker names", "error", err)
		return names
	}
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names
}
