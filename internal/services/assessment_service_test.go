package services

import (
	"errors"
	"testing"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

func draft(a *models.Assessment) { a.Status = models.StatusDraft }

func (f *fixture) newQuestion(correct string) *models.Question {
	f.t.Helper()
	q := &models.Question{
		Type:          models.FreeText,
		Text:          "Type " + correct,
		Points:        1,
		CorrectAnswer: correct,
		CreatedBy:     ownerID,
	}
	if err := f.store.Question().Create(f.ctx, q); err != nil {
		f.t.Fatalf("create question: %v", err)
	}
	f.questions[correct] = q
	return q
}

func TestAssessmentService_Publish(t *testing.T) {
	f := newFixture(t, withAssessment(func(a *models.Assessment) {
		draft(a)
		a.QuestionCount = 3
	}))

	_, err := f.admin.Publish(f.ctx, f.assessment.ID, ownerID)
	var ruleErr *BusinessRuleError
	if !errors.As(err, &ruleErr) || !errors.Is(err, ErrInsufficientPool) {
		t.Fatalf("expected pool_size business rule error, got %v", err)
	}
	if ruleErr.Rule != "pool_size" || ruleErr.Context["active_questions"] != 2 {
		t.Errorf("unexpected rule error %+v", ruleErr)
	}

	stored, _ := f.store.Assessment().GetByID(f.ctx, f.assessment.ID)
	if stored.IsPublished() {
		t.Fatal("failed publish must leave the assessment in draft")
	}

	extra := f.newQuestion("C")
	if _, err := f.admin.AddToPool(f.ctx, f.assessment.ID, &models.PoolUpdateRequest{QuestionIDs: []uint{extra.ID}}, ownerID); err != nil {
		t.Fatalf("add to pool: %v", err)
	}

	published, err := f.admin.Publish(f.ctx, f.assessment.ID, ownerID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !published.IsPublished() || published.PublishedAt == nil || !published.PublishedAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected published assessment %+v", published)
	}

	again, err := f.admin.Publish(f.ctx, f.assessment.ID, ownerID)
	if err != nil {
		t.Fatalf("republish should be a no-op: %v", err)
	}
	if !again.PublishedAt.Equal(*published.PublishedAt) {
		t.Error("republish must keep the original publish time")
	}
}

func TestAssessmentService_PublishIgnoresInactiveQuestions(t *testing.T) {
	f := newFixture(t, withAssessment(draft))
	if err := f.store.Question().UpdateStatus(f.ctx, f.questions["A"].ID, models.QuestionInactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := f.admin.Publish(f.ctx, f.assessment.ID, ownerID); !errors.Is(err, ErrInsufficientPool) {
		t.Fatalf("expected ErrInsufficientPool, got %v", err)
	}
}

func TestAssessmentService_Unpublish(t *testing.T) {
	f := newFixture(t)

	got, err := f.admin.Unpublish(f.ctx, f.assessment.ID, ownerID)
	if err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if got.Status != models.StatusDraft || got.PublishedAt != nil {
		t.Fatalf("unexpected assessment after unpublish %+v", got)
	}

	if _, err := f.attempts.Start(f.ctx, f.assessment.ID, takerID); !errors.Is(err, ErrNotPublished) {
		t.Fatalf("expected ErrNotPublished after unpublish, got %v", err)
	}
}

func TestAssessmentService_OwnerChecks(t *testing.T) {
	f := newFixture(t)
	req := &models.PoolUpdateRequest{QuestionIDs: []uint{f.questions["A"].ID}}

	calls := map[string]func(userID string) error{
		"publish": func(u string) error { _, err := f.admin.Publish(f.ctx, f.assessment.ID, u); return err },
		"unpublish": func(u string) error {
			_, err := f.admin.Unpublish(f.ctx, f.assessment.ID, u)
			return err
		},
		"delete": func(u string) error { return f.admin.Delete(f.ctx, f.assessment.ID, u) },
		"add to pool": func(u string) error {
			_, err := f.admin.AddToPool(f.ctx, f.assessment.ID, req, u)
			return err
		},
		"remove from pool": func(u string) error {
			_, err := f.admin.RemoveFromPool(f.ctx, f.assessment.ID, req, u)
			return err
		},
		"list pool": func(u string) error { _, err := f.admin.ListPool(f.ctx, f.assessment.ID, u); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			var permErr *PermissionError
			if err := call(takerID); !errors.As(err, &permErr) {
				t.Fatalf("expected PermissionError, got %v", err)
			}
		})
	}

	if _, err := f.store.Assessment().GetByID(f.ctx, f.assessment.ID); err != nil {
		t.Fatalf("assessment must survive rejected calls: %v", err)
	}
	if ids, _ := f.store.Pool().List(f.ctx, f.assessment.ID); len(ids) != 2 {
		t.Fatalf("pool must survive rejected calls, got %v", ids)
	}
}

func TestAssessmentService_UnknownAssessment(t *testing.T) {
	f := newFixture(t)

	if _, err := f.admin.Publish(f.ctx, 999, ownerID); !errors.Is(err, ErrAssessmentNotFound) {
		t.Fatalf("expected ErrAssessmentNotFound, got %v", err)
	}
	if err := f.admin.Delete(f.ctx, 999, ownerID); !errors.Is(err, ErrAssessmentNotFound) {
		t.Fatalf("expected ErrAssessmentNotFound, got %v", err)
	}
}

func TestAssessmentService_Pool(t *testing.T) {
	f := newFixture(t)
	c := f.newQuestion("C")
	d := f.newQuestion("D")

	added, err := f.admin.AddToPool(f.ctx, f.assessment.ID, &models.PoolUpdateRequest{
		QuestionIDs: []uint{c.ID, d.ID, c.ID, f.questions["A"].ID},
	}, ownerID)
	if err != nil {
		t.Fatalf("add to pool: %v", err)
	}
	if added != 2 {
		t.Errorf("expected 2 new entries, got %d", added)
	}

	ids, err := f.admin.ListPool(f.ctx, f.assessment.ID, ownerID)
	if err != nil {
		t.Fatalf("list pool: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("expected 4 pool entries, got %v", ids)
	}

	removed, err := f.admin.RemoveFromPool(f.ctx, f.assessment.ID, &models.PoolUpdateRequest{
		QuestionIDs: []uint{d.ID, 999},
	}, ownerID)
	if err != nil {
		t.Fatalf("remove from pool: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed entry, got %d", removed)
	}

	ids, _ = f.admin.ListPool(f.ctx, f.assessment.ID, ownerID)
	if len(ids) != 3 {
		t.Fatalf("expected 3 pool entries, got %v", ids)
	}
}

func TestAssessmentService_AddToPoolRejects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		ids   []uint
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown question",
			ids:  []uint{f.questions["A"].ID, 999},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrQuestionNotFound) {
					t.Fatalf("expected ErrQuestionNotFound, got %v", err)
				}
			},
		},
		{
			name: "empty list",
			ids:  []uint{},
			check: func(t *testing.T, err error) {
				var verrs ValidationErrors
				if !errors.As(err, &verrs) {
					t.Fatalf("expected ValidationErrors, got %v", err)
				}
			},
		},
		{
			name: "zero id",
			ids:  []uint{0},
			check: func(t *testing.T, err error) {
				var verrs ValidationErrors
				if !errors.As(err, &verrs) {
					t.Fatalf("expected ValidationErrors, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.admin.AddToPool(f.ctx, f.assessment.ID, &models.PoolUpdateRequest{QuestionIDs: tt.ids}, ownerID)
			tt.check(t, err)
		})
	}

	if ids, _ := f.store.Pool().List(f.ctx, f.assessment.ID); len(ids) != 2 {
		t.Fatalf("rejected adds must not change the pool, got %v", ids)
	}
}

func TestAssessmentService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	view := f.start()
	f.answer(view.AttemptID, "A", "A")
	f.finalize(view.AttemptID)

	other := &models.Assessment{Title: "Other", GroupID: groupID, QuestionCount: 1, CreatedBy: ownerID}
	if err := f.store.Assessment().Create(f.ctx, other); err != nil {
		t.Fatalf("create other: %v", err)
	}
	if _, err := f.store.Pool().Add(f.ctx, other.ID, []uint{f.questions["A"].ID}); err != nil {
		t.Fatalf("seed other pool: %v", err)
	}

	if err := f.admin.Delete(f.ctx, f.assessment.ID, ownerID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.store.Assessment().GetByID(f.ctx, f.assessment.ID); !repositories.IsNotFoundError(err) {
		t.Errorf("assessment still present: %v", err)
	}
	if _, err := f.store.Attempt().GetByID(f.ctx, view.AttemptID); !repositories.IsNotFoundError(err) {
		t.Errorf("attempt still present: %v", err)
	}
	if answers, _ := f.store.Answer().ListByAttempt(f.ctx, view.AttemptID); len(answers) != 0 {
		t.Errorf("answers still present: %d", len(answers))
	}
	if ids, _ := f.store.Pool().List(f.ctx, f.assessment.ID); len(ids) != 0 {
		t.Errorf("pool still present: %v", ids)
	}

	if ids, _ := f.store.Pool().List(f.ctx, other.ID); len(ids) != 1 {
		t.Errorf("other assessment's pool was touched: %v", ids)
	}
	if _, err := f.store.Question().GetByID(f.ctx, f.questions["A"].ID); err != nil {
		t.Errorf("question content must survive: %v", err)
	}
	if _, err := f.results.GetResult(f.ctx, view.AttemptID, takerID); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("expected ErrAttemptNotFound after delete, got %v", err)
	}
}
