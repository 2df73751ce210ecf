package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

// ===== ASSESSMENT =====

type assessmentRepo struct{ s *Store }

func (r *assessmentRepo) Create(ctx context.Context, assessment *models.Assessment) error {
	defer r.s.lock()()

	now := r.s.clock()
	assessment.ID = r.s.st.nextID("assessments")
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = now
	}
	assessment.UpdatedAt = now
	if assessment.Status == "" {
		assessment.Status = models.StatusDraft
	}
	r.s.st.assessments[assessment.ID] = *assessment
	return nil
}

func (r *assessmentRepo) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	defer r.s.lock()()

	a, ok := r.s.st.assessments[id]
	if !ok {
		return nil, fmt.Errorf("failed to get assessment: %w", repositories.ErrNotFound)
	}
	return &a, nil
}

func (r *assessmentRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Assessment, error) {
	return r.GetByID(ctx, id)
}

func (r *assessmentRepo) UpdateStatus(ctx context.Context, id uint, status models.AssessmentStatus, publishedAt *time.Time) error {
	defer r.s.lock()()

	a, ok := r.s.st.assessments[id]
	if !ok {
		return fmt.Errorf("failed to update assessment status: %w", repositories.ErrNotFound)
	}
	a.Status = status
	a.PublishedAt = publishedAt
	a.UpdatedAt = r.s.clock()
	r.s.st.assessments[id] = a
	return nil
}

func (r *assessmentRepo) Delete(ctx context.Context, id uint) error {
	defer r.s.lock()()

	if _, ok := r.s.st.assessments[id]; !ok {
		return fmt.Errorf("failed to delete assessment: %w", repositories.ErrNotFound)
	}
	delete(r.s.st.assessments, id)
	return nil
}

// ===== QUESTION =====

type questionRepo struct{ s *Store }

func (r *questionRepo) Create(ctx context.Context, question *models.Question) error {
	defer r.s.lock()()

	now := r.s.clock()
	question.ID = r.s.st.nextID("questions")
	if question.Status == "" {
		question.Status = models.QuestionActive
	}
	question.CreatedAt = now
	question.UpdatedAt = now
	r.s.st.questions[question.ID] = *question
	return nil
}

func (r *questionRepo) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	defer r.s.lock()()

	q, ok := r.s.st.questions[id]
	if !ok {
		return nil, fmt.Errorf("failed to get question: %w", repositories.ErrNotFound)
	}
	return &q, nil
}

func (r *questionRepo) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Question, error) {
	defer r.s.lock()()

	result := make(map[uint]*models.Question, len(ids))
	for _, id := range ids {
		if q, ok := r.s.st.questions[id]; ok {
			result[id] = &q
		}
	}
	return result, nil
}

func (r *questionRepo) GetByIDsUncached(ctx context.Context, ids []uint) (map[uint]*models.Question, error) {
	return r.GetByIDs(ctx, ids)
}

func (r *questionRepo) UpdateStatus(ctx context.Context, id uint, status models.QuestionStatus) error {
	defer r.s.lock()()

	q, ok := r.s.st.questions[id]
	if !ok {
		return fmt.Errorf("failed to update question status: %w", repositories.ErrNotFound)
	}
	q.Status = status
	q.UpdatedAt = r.s.clock()
	r.s.st.questions[id] = q
	return nil
}

// ===== POOL =====

type poolRepo struct{ s *Store }

func (r *poolRepo) Add(ctx context.Context, assessmentID uint, questionIDs []uint) (int, error) {
	defer r.s.lock()()

	entries := r.s.st.pool[assessmentID]
	present := make(map[uint]bool, len(entries))
	for _, e := range entries {
		present[e.QuestionID] = true
	}

	added := 0
	for _, questionID := range questionIDs {
		if present[questionID] {
			continue
		}
		present[questionID] = true
		entries = append(entries, models.PoolEntry{
			ID:           r.s.st.nextID("pool"),
			AssessmentID: assessmentID,
			QuestionID:   questionID,
			CreatedAt:    r.s.clock(),
		})
		added++
	}
	r.s.st.pool[assessmentID] = entries
	return added, nil
}

func (r *poolRepo) Remove(ctx context.Context, assessmentID uint, questionIDs []uint) (int, error) {
	defer r.s.lock()()

	drop := make(map[uint]bool, len(questionIDs))
	for _, id := range questionIDs {
		drop[id] = true
	}

	entries := r.s.st.pool[assessmentID]
	kept := entries[:0:0]
	for _, e := range entries {
		if !drop[e.QuestionID] {
			kept = append(kept, e)
		}
	}
	r.s.st.pool[assessmentID] = kept
	return len(entries) - len(kept), nil
}

func (r *poolRepo) List(ctx context.Context, assessmentID uint) ([]uint, error) {
	defer r.s.lock()()

	entries := r.s.st.pool[assessmentID]
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.QuestionID)
	}
	return ids, nil
}

func (r *poolRepo) ListActive(ctx context.Context, assessmentID uint) ([]uint, error) {
	defer r.s.lock()()
	return r.activeIDs(assessmentID), nil
}

func (r *poolRepo) CountActive(ctx context.Context, assessmentID uint) (int, error) {
	defer r.s.lock()()
	return len(r.activeIDs(assessmentID)), nil
}

func (r *poolRepo) activeIDs(assessmentID uint) []uint {
	entries := r.s.st.pool[assessmentID]
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		if q, ok := r.s.st.questions[e.QuestionID]; ok && q.IsActive() {
			ids = append(ids, e.QuestionID)
		}
	}
	return ids
}

func (r *poolRepo) DeleteByAssessment(ctx context.Context, assessmentID uint) error {
	defer r.s.lock()()
	delete(r.s.st.pool, assessmentID)
	return nil
}

// ===== ENROLLMENT =====

type enrollmentRepo struct{ s *Store }

func (r *enrollmentRepo) IsEnrolled(ctx context.Context, groupID uint, takerID string) (bool, error) {
	defer r.s.lock()()

	e, ok := r.s.st.enrollments[enrollmentKey{groupID, takerID}]
	return ok && e.Status == models.EnrollmentActive, nil
}

func (r *enrollmentRepo) Upsert(ctx context.Context, enrollment *models.Enrollment) error {
	defer r.s.lock()()

	key := enrollmentKey{enrollment.GroupID, enrollment.TakerID}
	if existing, ok := r.s.st.enrollments[key]; ok {
		existing.Status = enrollment.Status
		r.s.st.enrollments[key] = existing
		*enrollment = existing
		return nil
	}

	enrollment.ID = r.s.st.nextID("enrollments")
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentActive
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = r.s.clock()
	}
	r.s.st.enrollments[key] = *enrollment
	return nil
}

// ===== ATTEMPT =====

type attemptRepo struct{ s *Store }

func (r *attemptRepo) Create(ctx context.Context, attempt *models.AssessmentAttempt) error {
	defer r.s.lock()()

	for _, existing := range r.s.st.attempts {
		if existing.AssessmentID == attempt.AssessmentID &&
			existing.TakerID == attempt.TakerID &&
			existing.AttemptNumber == attempt.AttemptNumber {
			return fmt.Errorf("failed to create attempt: %w", repositories.ErrDuplicate)
		}
	}

	attempt.ID = r.s.st.nextID("attempts")
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = r.s.clock()
	}
	attempt.UpdatedAt = attempt.CreatedAt
	if attempt.Status == "" {
		attempt.Status = models.AttemptActive
	}
	r.s.st.attempts[attempt.ID] = copyAttempt(*attempt)
	return nil
}

func (r *attemptRepo) GetByID(ctx context.Context, id uint) (*models.AssessmentAttempt, error) {
	defer r.s.lock()()

	a, ok := r.s.st.attempts[id]
	if !ok {
		return nil, fmt.Errorf("failed to get attempt: %w", repositories.ErrNotFound)
	}
	a = copyAttempt(a)
	return &a, nil
}

func (r *attemptRepo) GetByIDForShare(ctx context.Context, id uint) (*models.AssessmentAttempt, error) {
	return r.GetByID(ctx, id)
}

func (r *attemptRepo) CountByTaker(ctx context.Context, assessmentID uint, takerID string) (int, error) {
	defer r.s.lock()()

	count := 0
	for _, a := range r.s.st.attempts {
		if a.AssessmentID == assessmentID && a.TakerID == takerID {
			count++
		}
	}
	return count, nil
}

func (r *attemptRepo) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.AssessmentAttempt, error) {
	defer r.s.lock()()

	var attempts []*models.AssessmentAttempt
	for _, a := range r.s.st.attempts {
		if filters.AssessmentID != nil && a.AssessmentID != *filters.AssessmentID {
			continue
		}
		if filters.TakerID != nil && a.TakerID != *filters.TakerID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		c := copyAttempt(a)
		attempts = append(attempts, &c)
	}

	sort.Slice(attempts, func(i, j int) bool {
		if !attempts[i].CreatedAt.Equal(attempts[j].CreatedAt) {
			return attempts[i].CreatedAt.After(attempts[j].CreatedAt)
		}
		return attempts[i].ID > attempts[j].ID
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(attempts) {
			return nil, nil
		}
		attempts = attempts[filters.Offset:]
	}
	if filters.Limit > 0 && len(attempts) > filters.Limit {
		attempts = attempts[:filters.Limit]
	}
	return attempts, nil
}

func (r *attemptRepo) MarkFinalized(ctx context.Context, id uint, finalizedAt time.Time) (bool, error) {
	defer r.s.lock()()

	a, ok := r.s.st.attempts[id]
	if !ok || a.Status != models.AttemptActive {
		return false, nil
	}
	a.Status = models.AttemptFinalized
	a.FinalizedAt = &finalizedAt
	a.UpdatedAt = finalizedAt
	r.s.st.attempts[id] = a
	return true, nil
}

func (r *attemptRepo) SaveScore(ctx context.Context, id uint, score repositories.AttemptScore) error {
	defer r.s.lock()()

	a, ok := r.s.st.attempts[id]
	if !ok {
		return fmt.Errorf("failed to save attempt score: %w", repositories.ErrNotFound)
	}
	elapsed, total, earned, passed := score.ElapsedSeconds, score.TotalPoints, score.EarnedPoints, score.Passed
	a.ElapsedSeconds = &elapsed
	a.TotalPoints = &total
	a.EarnedPoints = &earned
	a.Percentage.Decimal = score.Percentage
	a.Percentage.Valid = true
	a.Passed = &passed
	a.UpdatedAt = score.FinalizedAt
	r.s.st.attempts[id] = a
	return nil
}

func (r *attemptRepo) DeleteByAssessment(ctx context.Context, assessmentID uint) error {
	defer r.s.lock()()

	for id, a := range r.s.st.attempts {
		if a.AssessmentID == assessmentID {
			delete(r.s.st.attempts, id)
		}
	}
	return nil
}

// ===== ANSWER LEDGER =====

type answerRepo struct{ s *Store }

func (r *answerRepo) Upsert(ctx context.Context, answer *models.AttemptAnswer) error {
	defer r.s.lock()()

	key := answerKey{answer.AttemptID, answer.QuestionID}
	now := r.s.clock()
	if existing, ok := r.s.st.answers[key]; ok {
		existing.Response = answer.Response
		existing.AnsweredAt = answer.AnsweredAt
		existing.UpdatedAt = now
		r.s.st.answers[key] = existing
		*answer = existing
		return nil
	}

	answer.ID = r.s.st.nextID("answers")
	answer.CreatedAt = now
	answer.UpdatedAt = now
	r.s.st.answers[key] = *answer
	return nil
}

func (r *answerRepo) ListByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error) {
	defer r.s.lock()()

	var answers []*models.AttemptAnswer
	for key, a := range r.s.st.answers {
		if key.attemptID == attemptID {
			c := a
			answers = append(answers, &c)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	return answers, nil
}

func (r *answerRepo) SaveGrades(ctx context.Context, attemptID uint, grades []repositories.AnswerGrade) error {
	defer r.s.lock()()

	for _, g := range grades {
		key := answerKey{attemptID, g.QuestionID}
		a, ok := r.s.st.answers[key]
		if !ok {
			continue
		}
		correct := g.IsCorrect
		a.IsCorrect = &correct
		a.PointsEarned = g.PointsEarned
		r.s.st.answers[key] = a
	}
	return nil
}

func (r *answerRepo) DeleteByAssessment(ctx context.Context, assessmentID uint) error {
	defer r.s.lock()()

	for key := range r.s.st.answers {
		if a, ok := r.s.st.attempts[key.attemptID]; ok && a.AssessmentID == assessmentID {
			delete(r.s.st.answers, key)
		}
	}
	return nil
}
