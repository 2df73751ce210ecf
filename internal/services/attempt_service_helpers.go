package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

// ===== ELIGIBILITY =====

// checkEligibility applies the start preconditions in a fixed order and
// returns the number of attempts the taker has already used.
func (s *attemptService) checkEligibility(ctx context.Context, assessment *models.Assessment, takerID string, now time.Time) (int, error) {
	used, err := s.repo.Attempt().CountByTaker(ctx, assessment.ID, takerID)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	if !assessment.IsPublished() {
		return used, ErrNotPublished
	}
	if assessment.StartTime != nil && now.Before(*assessment.StartTime) {
		return used, ErrNotYetOpen
	}
	if assessment.EndTime != nil && now.After(*assessment.EndTime) {
		return used, ErrClosed
	}

	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, assessment.GroupID, takerID)
	if err != nil {
		return used, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return used, ErrNotEnrolled
	}

	if used >= assessment.MaxAttempts {
		return used, ErrAttemptLimitReached
	}
	return used, nil
}

// createAttempt assigns the next attempt number and inserts the attempt. The
// count and insert share a transaction and the unique attempt-number index
// turns a lost race into ErrDuplicate, after which the count is re-read.
func (s *attemptService) createAttempt(ctx context.Context, assessment *models.Assessment, attempt *models.AssessmentAttempt) error {
	var err error
	for try := 1; try <= maxStartRetries; try++ {
		err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			count, err := tx.Attempt().CountByTaker(ctx, assessment.ID, attempt.TakerID)
			if err != nil {
				return fmt.Errorf("failed to count attempts: %w", err)
			}
			if count >= assessment.MaxAttempts {
				return ErrAttemptLimitReached
			}

			attempt.ID = 0
			attempt.AttemptNumber = count + 1
			return tx.Attempt().Create(ctx, attempt)
		})
		if !repositories.IsDuplicateError(err) {
			return err
		}
		s.logger.Debug("Attempt number already taken, retrying",
			"assessment_id", assessment.ID,
			"taker_id", attempt.TakerID,
			"try", try)
	}
	return fmt.Errorf("failed to allocate attempt number: %w", err)
}

// ===== LOOKUPS =====

func (s *attemptService) getAssessment(ctx context.Context, repo repositories.Repository, id uint) (*models.Assessment, error) {
	assessment, err := repo.Assessment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

func (s *attemptService) getOwnedAttempt(ctx context.Context, repo repositories.Repository, id uint, takerID, action string) (*models.AssessmentAttempt, error) {
	attempt, err := repo.Attempt().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.TakerID != takerID {
		return nil, NewPermissionError(takerID, id, "attempt", action, "not owned by taker")
	}
	return attempt, nil
}

// loadQuestions returns questions in the given order. Ids without content
// are skipped and logged.
func (s *attemptService) loadQuestions(ctx context.Context, ids []uint) ([]*models.Question, error) {
	return loadOrderedQuestions(ctx, s.repo.Question().GetByIDs, s.logger, ids)
}

// loadScoringQuestions bypasses the question cache so scoring sees the
// current answer keys.
func (s *attemptService) loadScoringQuestions(ctx context.Context, ids []uint) ([]*models.Question, error) {
	return loadOrderedQuestions(ctx, s.repo.Question().GetByIDsUncached, s.logger, ids)
}

// checkWritable enforces ownership, liveness and membership for answer writes.
func (s *attemptService) checkWritable(attempt *models.AssessmentAttempt, takerID string, questionID uint) error {
	if attempt.TakerID != takerID {
		return NewPermissionError(takerID, attempt.ID, "attempt", "answer", "not owned by taker")
	}
	if attempt.IsFinalized() {
		return ErrAttemptAlreadyFinalized
	}
	if !attempt.HasQuestion(questionID) {
		return ErrQuestionNotInAttempt
	}
	return nil
}

// ===== DEADLINES =====

// attemptDeadline is the earlier of the time-limit expiry and the assessment
// end time. ok is false when neither applies.
func attemptDeadline(assessment *models.Assessment, attempt *models.AssessmentAttempt) (deadline time.Time, ok bool) {
	if limit := assessment.TimeLimit(); limit > 0 {
		deadline, ok = attempt.CreatedAt.Add(limit), true
	}
	if assessment.EndTime != nil && (!ok || assessment.EndTime.Before(deadline)) {
		deadline, ok = *assessment.EndTime, true
	}
	return deadline, ok
}

func (s *attemptService) pastDeadline(assessment *models.Assessment, attempt *models.AssessmentAttempt, now time.Time) bool {
	deadline, ok := attemptDeadline(assessment, attempt)
	return ok && now.After(deadline.Add(s.policy.Grace))
}

// trailingAnswers converts the finalize batch into ledger rows. Answers for
// questions outside the attempt are dropped, as is the whole batch once a
// hard cutoff has passed.
func (s *attemptService) trailingAnswers(assessment *models.Assessment, attempt *models.AssessmentAttempt, reqs []models.SubmitAnswerRequest, now time.Time) []*models.AttemptAnswer {
	if len(reqs) == 0 {
		return nil
	}
	if s.policy.HardCutoff && s.pastDeadline(assessment, attempt, now) {
		s.logger.Warn("Dropping trailing answers after deadline",
			"attempt_id", attempt.ID,
			"answers", len(reqs))
		return nil
	}

	answers := make([]*models.AttemptAnswer, 0, len(reqs))
	for i := range reqs {
		req := reqs[i]
		if err := s.validator.Validate(&req); err != nil {
			s.logger.Warn("Skipping invalid trailing answer",
				"attempt_id", attempt.ID,
				"question_id", req.QuestionID,
				"error", err)
			continue
		}
		if !attempt.HasQuestion(req.QuestionID) {
			s.logger.Warn("Skipping trailing answer for foreign question",
				"attempt_id", attempt.ID,
				"question_id", req.QuestionID)
			continue
		}
		answers = append(answers, &models.AttemptAnswer{
			AttemptID:  attempt.ID,
			QuestionID: req.QuestionID,
			Response:   req.Response,
			AnsweredAt: now,
		})
	}
	return answers
}

func elapsedSeconds(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// ===== EVENTS =====

// publish is best-effort: the attempt is already committed.
func (s *attemptService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}

// ===== VIEW BUILDERS =====

func buildAttemptView(assessment *models.Assessment, attempt *models.AssessmentAttempt, questions []*models.Question, answers []*models.AttemptAnswer) *models.AttemptView {
	view := &models.AttemptView{
		AttemptID:     attempt.ID,
		AssessmentID:  attempt.AssessmentID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        attempt.Status,
		StartedAt:     attempt.CreatedAt,
		Questions:     make([]models.AttemptQuestionView, 0, len(questions)),
	}

	if limit := assessment.TimeLimit(); limit > 0 {
		expires := attempt.CreatedAt.Add(limit)
		view.ExpiresAt = &expires
	}

	positions := questionPositions(attempt)
	optionOrder := attempt.OptionOrder.Data()
	for _, q := range questions {
		view.Questions = append(view.Questions, models.AttemptQuestionView{
			Position:   positions[q.ID],
			QuestionID: q.ID,
			Type:       q.Type,
			Text:       q.Text,
			Points:     q.Points,
			Options:    orderedOptions(q, optionOrder[q.ID]),
		})
	}

	if len(answers) > 0 {
		view.Answers = make(map[uint]string, len(answers))
		for _, a := range answers {
			view.Answers[a.QuestionID] = a.Response
		}
	}
	return view
}

func buildAttemptSummary(a *models.AssessmentAttempt) *models.AttemptSummary {
	return &models.AttemptSummary{
		AttemptID:      a.ID,
		AttemptNumber:  a.AttemptNumber,
		Status:         a.Status,
		StartedAt:      a.CreatedAt,
		FinalizedAt:    a.FinalizedAt,
		ElapsedSeconds: a.ElapsedSeconds,
		EarnedPoints:   a.EarnedPoints,
		TotalPoints:    a.TotalPoints,
		Percentage:     a.Percentage,
		Passed:         a.Passed,
	}
}

// orderedOptions applies the stored per-attempt order. Options added to the
// question after the attempt started are appended in authored order.
func orderedOptions(q *models.Question, order []string) []models.QuestionOption {
	if !q.Type.HasOptions() || len(q.Options) == 0 {
		return nil
	}

	byID := make(map[string]models.QuestionOption, len(q.Options))
	for _, opt := range q.Options {
		byID[opt.ID] = opt
	}

	options := make([]models.QuestionOption, 0, len(q.Options))
	for _, id := range order {
		if opt, ok := byID[id]; ok {
			options = append(options, opt)
			delete(byID, id)
		}
	}
	for _, opt := range q.Options {
		if _, ok := byID[opt.ID]; ok {
			options = append(options, opt)
		}
	}
	return options
}

func questionPositions(attempt *models.AssessmentAttempt) map[uint]int {
	positions := make(map[uint]int, len(attempt.QuestionOrder))
	for i, id := range attempt.QuestionOrder {
		positions[id] = i + 1
	}
	return positions
}

func answersByQuestion(answers []*models.AttemptAnswer) map[uint]*models.AttemptAnswer {
	m := make(map[uint]*models.AttemptAnswer, len(answers))
	for _, a := range answers {
		m[a.QuestionID] = a
	}
	return m
}
