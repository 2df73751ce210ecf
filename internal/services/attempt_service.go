package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
	"gorm.io/datatypes"
)

// maxStartRetries bounds how often Start re-reads the attempt count after
// losing an attempt-number race to a concurrent start by the same taker.
const maxStartRetries = 3

type attemptService struct {
	repo      repositories.Repository
	sampler   *Sampler
	publisher events.EventPublisher
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
	policy    AttemptPolicy
	now       func() time.Time
}

func NewAttemptService(
	repo repositories.Repository,
	sampler *Sampler,
	publisher events.EventPublisher,
	cacheManager *cache.CacheManager,
	logger *slog.Logger,
	validator *validator.Validator,
	policy AttemptPolicy,
) AttemptService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &attemptService{
		repo:      repo,
		sampler:   sampler,
		publisher: publisher,
		cache:     cacheManager,
		logger:    logger,
		validator: validator,
		policy:    policy,
		now:       time.Now,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, assessmentID uint, takerID string) (*models.AttemptView, error) {
	s.logger.Info("Starting assessment attempt",
		"assessment_id", assessmentID,
		"taker_id", takerID)

	assessment, err := s.getAssessment(ctx, s.repo, assessmentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if _, err := s.checkEligibility(ctx, assessment, takerID, now); err != nil {
		return nil, err
	}

	// Sample from the active pool
	poolIDs, err := s.repo.Pool().ListActive(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question pool: %w", err)
	}

	order, err := s.sampler.Sample(poolIDs, assessment.QuestionCount, assessment.Settings.RandomizeQuestions)
	if err != nil {
		if errors.Is(err, ErrInsufficientPool) {
			s.logger.Warn("Question pool smaller than sample size",
				"assessment_id", assessmentID,
				"pool_size", len(poolIDs),
				"question_count", assessment.QuestionCount)
			return nil, fmt.Errorf("%w: %d active questions, %d required", ErrInsufficientPool, len(poolIDs), assessment.QuestionCount)
		}
		return nil, err
	}

	questions, err := s.loadQuestions(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(questions) != len(order) {
		return nil, fmt.Errorf("%w: sampled question content is missing", ErrQuestionNotFound)
	}

	attempt := &models.AssessmentAttempt{
		AssessmentID:  assessmentID,
		TakerID:       takerID,
		Status:        models.AttemptActive,
		QuestionOrder: datatypes.JSONSlice[uint](order),
		OptionOrder:   datatypes.NewJSONType(s.sampler.ShuffleOptions(questions, assessment.Settings.RandomizeOptions)),
		CreatedAt:     now,
	}

	if err := s.createAttempt(ctx, assessment, attempt); err != nil {
		return nil, err
	}

	s.logger.Info("Assessment attempt started",
		"attempt_id", attempt.ID,
		"assessment_id", assessmentID,
		"taker_id", takerID,
		"attempt_number", attempt.AttemptNumber)

	s.publish(ctx, events.NewEvent(events.AttemptStarted, events.AttemptStartedData{
		AttemptID:     attempt.ID,
		AssessmentID:  assessmentID,
		TakerID:       takerID,
		AttemptNumber: attempt.AttemptNumber,
		QuestionCount: len(order),
		StartedAt:     attempt.CreatedAt,
	}))

	return buildAttemptView(assessment, attempt, questions, nil), nil
}

func (s *attemptService) Resume(ctx context.Context, attemptID uint, takerID string) (*models.AttemptView, error) {
	attempt, err := s.getOwnedAttempt(ctx, s.repo, attemptID, takerID, "resume")
	if err != nil {
		return nil, err
	}

	assessment, err := s.getAssessment(ctx, s.repo, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	questions, err := s.loadQuestions(ctx, attempt.QuestionOrder)
	if err != nil {
		return nil, err
	}

	answers, err := s.repo.Answer().ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	s.logger.Debug("Assessment attempt resumed", "attempt_id", attemptID, "answers", len(answers))
	return buildAttemptView(assessment, attempt, questions, answers), nil
}

func (s *attemptService) RecordAnswer(ctx context.Context, attemptID uint, req *models.SubmitAnswerRequest, takerID string) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	answeredAt := s.now()
	return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		// FOR SHARE keeps a concurrent finalize from committing underneath this write
		attempt, err := tx.Attempt().GetByIDForShare(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}
		if err := s.checkWritable(attempt, takerID, req.QuestionID); err != nil {
			return err
		}

		if s.policy.HardCutoff {
			assessment, err := s.getAssessment(ctx, tx, attempt.AssessmentID)
			if err != nil {
				return err
			}
			if s.pastDeadline(assessment, attempt, answeredAt) {
				return ErrAttemptDeadlinePassed
			}
		}

		if err := tx.Answer().Upsert(ctx, &models.AttemptAnswer{
			AttemptID:  attemptID,
			QuestionID: req.QuestionID,
			Response:   req.Response,
			AnsweredAt: answeredAt,
		}); err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}
		return nil
	})
}

func (s *attemptService) Finalize(ctx context.Context, attemptID uint, req *models.FinalizeAttemptRequest, takerID string) (*models.ResultView, error) {
	if req == nil {
		req = &models.FinalizeAttemptRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	s.logger.Info("Finalizing assessment attempt",
		"attempt_id", attemptID,
		"taker_id", takerID,
		"trailing_answers", len(req.Answers))

	attempt, err := s.getOwnedAttempt(ctx, s.repo, attemptID, takerID, "finalize")
	if err != nil {
		return nil, err
	}
	if attempt.IsFinalized() {
		return nil, ErrAttemptAlreadyFinalized
	}

	assessment, err := s.getAssessment(ctx, s.repo, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	questions, err := s.loadScoringQuestions(ctx, attempt.QuestionOrder)
	if err != nil {
		return nil, err
	}

	finalizedAt := s.now()
	trailing := s.trailingAnswers(assessment, attempt, req.Answers, finalizedAt)

	var (
		result  ScoreResult
		answers []*models.AttemptAnswer
		passed  bool
	)
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		// The conditional update is the only gate: whoever flips the status scores.
		ok, err := tx.Attempt().MarkFinalized(ctx, attemptID, finalizedAt)
		if err != nil {
			return fmt.Errorf("failed to finalize attempt: %w", err)
		}
		if !ok {
			return ErrAttemptAlreadyFinalized
		}

		for _, answer := range trailing {
			if err := tx.Answer().Upsert(ctx, answer); err != nil {
				return fmt.Errorf("failed to save answer for question %d: %w", answer.QuestionID, err)
			}
		}

		answers, err = tx.Answer().ListByAttempt(ctx, attemptID)
		if err != nil {
			return fmt.Errorf("failed to load answers: %w", err)
		}

		result = Score(questions, answersByQuestion(answers))
		passed = Passed(result.EarnedPoints, result.TotalPoints, assessment.PassingScore)

		if err := tx.Answer().SaveGrades(ctx, attemptID, result.Grades()); err != nil {
			return fmt.Errorf("failed to save grades: %w", err)
		}

		return tx.Attempt().SaveScore(ctx, attemptID, repositories.AttemptScore{
			FinalizedAt:    finalizedAt,
			ElapsedSeconds: elapsedSeconds(attempt.CreatedAt, finalizedAt),
			TotalPoints:    result.TotalPoints,
			EarnedPoints:   result.EarnedPoints,
			Percentage:     result.Percentage,
			Passed:         passed,
		})
	})
	if err != nil {
		if errors.Is(err, ErrAttemptAlreadyFinalized) {
			s.logger.Info("Duplicate finalize rejected", "attempt_id", attemptID)
		}
		return nil, err
	}

	finalized, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attempt: %w", err)
	}

	s.logger.Info("Attempt finalized",
		"attempt_id", attemptID,
		"earned_points", result.EarnedPoints,
		"total_points", result.TotalPoints,
		"percentage", result.Percentage.String(),
		"passed", passed)

	view := buildResultView(assessment, finalized, questions, answers)
	if err := s.cache.Result.Set(ctx, cache.ResultKey(assessment.ID, attemptID), view, cache.ResultCacheConfig.TTL); err != nil {
		s.logger.Warn("Failed to cache result view", "attempt_id", attemptID, "error", err)
	}

	s.publish(ctx, events.NewEvent(events.AttemptFinalized, events.AttemptFinalizedData{
		AttemptID:      attemptID,
		AssessmentID:   assessment.ID,
		TakerID:        takerID,
		EarnedPoints:   result.EarnedPoints,
		TotalPoints:    result.TotalPoints,
		Percentage:     result.Percentage.String(),
		Passed:         passed,
		ElapsedSeconds: view.Summary.ElapsedSeconds,
		FinalizedAt:    finalizedAt,
	}))

	return applyVisibility(view, assessment.Settings, false), nil
}

// ===== ELIGIBILITY AND HISTORY =====

func (s *attemptService) CheckEligibility(ctx context.Context, assessmentID uint, takerID string) (*models.EligibilityView, error) {
	assessment, err := s.getAssessment(ctx, s.repo, assessmentID)
	if err != nil {
		return nil, err
	}

	view := &models.EligibilityView{
		AssessmentID: assessmentID,
		MaxAttempts:  assessment.MaxAttempts,
	}

	used, err := s.checkEligibility(ctx, assessment, takerID, s.now())
	view.AttemptsUsed = used
	switch {
	case err == nil:
		view.CanStart = true
	case IsEligibilityError(err):
		view.Reason = err.Error()
	default:
		return nil, err
	}

	if view.CanStart {
		active, err := s.repo.Pool().CountActive(ctx, assessmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to count pool: %w", err)
		}
		if active < assessment.QuestionCount {
			view.CanStart = false
			view.Reason = ErrInsufficientPool.Error()
		}
	}
	return view, nil
}

func (s *attemptService) ListMine(ctx context.Context, assessmentID uint, takerID string) ([]*models.AttemptSummary, error) {
	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		AssessmentID: &assessmentID,
		TakerID:      &takerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	summaries := make([]*models.AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		summaries = append(summaries, buildAttemptSummary(a))
	}
	return summaries, nil
}
