package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

func newAttempt(assessmentID uint, taker string, number int) *models.AssessmentAttempt {
	return &models.AssessmentAttempt{
		AssessmentID:  assessmentID,
		TakerID:       taker,
		AttemptNumber: number,
		QuestionOrder: []uint{1, 2},
	}
}

func TestStore_AttemptNumberIsUnique(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	if err := store.Attempt().Create(ctx, newAttempt(1, "s1", 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := store.Attempt().Create(ctx, newAttempt(1, "s1", 1))
	if !repositories.IsDuplicateError(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := store.Attempt().Create(ctx, newAttempt(1, "s2", 1)); err != nil {
		t.Fatalf("another taker may reuse the number: %v", err)
	}
}

func TestStore_AttemptCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	attempt := newAttempt(1, "s1", 1)
	if err := store.Attempt().Create(ctx, attempt); err != nil {
		t.Fatalf("create: %v", err)
	}
	attempt.QuestionOrder[0] = 99

	got, _ := store.Attempt().GetByID(ctx, attempt.ID)
	if got.QuestionOrder[0] != 1 {
		t.Fatalf("stored question order changed through the caller's slice: %v", got.QuestionOrder)
	}
	got.QuestionOrder[1] = 42

	again, _ := store.Attempt().GetByID(ctx, attempt.ID)
	if again.QuestionOrder[1] != 2 {
		t.Fatalf("stored question order changed through a read copy: %v", again.QuestionOrder)
	}
}

func TestStore_MarkFinalizedOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	attempt := newAttempt(1, "s1", 1)
	_ = store.Attempt().Create(ctx, attempt)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Attempt().MarkFinalized(ctx, attempt.ID, time.Now())
			if err != nil {
				t.Errorf("mark finalized: %v", err)
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected one winning transition, got %d", wins)
	}
	if ok, _ := store.Attempt().MarkFinalized(ctx, 999, time.Now()); ok {
		t.Error("unknown attempt must not transition")
	}
}

func TestStore_SaveScore(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	attempt := newAttempt(1, "s1", 1)
	_ = store.Attempt().Create(ctx, attempt)

	err := store.Attempt().SaveScore(ctx, attempt.ID, repositories.AttemptScore{
		FinalizedAt:    time.Now(),
		ElapsedSeconds: 30,
		TotalPoints:    4,
		EarnedPoints:   3,
		Percentage:     decimal.NewFromInt(75),
		Passed:         true,
	})
	if err != nil {
		t.Fatalf("save score: %v", err)
	}

	got, _ := store.Attempt().GetByID(ctx, attempt.ID)
	if *got.EarnedPoints != 3 || *got.TotalPoints != 4 || !got.Percentage.Valid || !*got.Passed || *got.ElapsedSeconds != 30 {
		t.Fatalf("unexpected score fields %+v", got)
	}
	if err := store.Attempt().SaveScore(ctx, 999, repositories.AttemptScore{}); !repositories.IsNotFoundError(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_AnswerUpsertAndGrades(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	for _, response := range []string{"A", "B", "C"} {
		if err := store.Answer().Upsert(ctx, &models.AttemptAnswer{AttemptID: 1, QuestionID: 5, Response: response}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	_ = store.Answer().Upsert(ctx, &models.AttemptAnswer{AttemptID: 1, QuestionID: 3, Response: "X"})

	answers, _ := store.Answer().ListByAttempt(ctx, 1)
	if len(answers) != 2 || answers[0].QuestionID != 3 || answers[1].Response != "C" {
		t.Fatalf("unexpected ledger %+v", answers)
	}

	err := store.Answer().SaveGrades(ctx, 1, []repositories.AnswerGrade{
		{QuestionID: 5, IsCorrect: true, PointsEarned: 2},
		{QuestionID: 77, IsCorrect: true, PointsEarned: 1},
	})
	if err != nil {
		t.Fatalf("save grades: %v", err)
	}

	answers, _ = store.Answer().ListByAttempt(ctx, 1)
	if answers[1].IsCorrect == nil || !*answers[1].IsCorrect || answers[1].PointsEarned != 2 {
		t.Errorf("grade not written: %+v", answers[1])
	}
	if answers[0].IsCorrect != nil {
		t.Errorf("ungraded answer changed: %+v", answers[0])
	}
	if len(answers) != 2 {
		t.Errorf("grading must not create rows, got %d", len(answers))
	}
}

func TestStore_PoolActiveFiltering(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	var ids []uint
	for i := 0; i < 3; i++ {
		q := &models.Question{Type: models.FreeText, Text: "q", Points: 1, CorrectAnswer: "x"}
		_ = store.Question().Create(ctx, q)
		ids = append(ids, q.ID)
	}

	added, _ := store.Pool().Add(ctx, 1, append(ids, ids[0]))
	if added != 3 {
		t.Fatalf("expected 3 added, got %d", added)
	}
	if added, _ := store.Pool().Add(ctx, 1, ids); added != 0 {
		t.Fatalf("re-adding must be a no-op, got %d", added)
	}

	_ = store.Question().UpdateStatus(ctx, ids[1], models.QuestionInactive)
	active, _ := store.Pool().ListActive(ctx, 1)
	if len(active) != 2 {
		t.Fatalf("expected 2 active, got %v", active)
	}
	if n, _ := store.Pool().CountActive(ctx, 1); n != 2 {
		t.Fatalf("expected CountActive 2, got %d", n)
	}
	if all, _ := store.Pool().List(ctx, 1); len(all) != 3 {
		t.Fatalf("List must include inactive members, got %v", all)
	}

	removed, _ := store.Pool().Remove(ctx, 1, []uint{ids[0], 999})
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}

func TestStore_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	boom := errors.New("boom")

	err := store.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Attempt().Create(ctx, newAttempt(1, "s1", 1)); err != nil {
			return err
		}
		if err := tx.Answer().Upsert(ctx, &models.AttemptAnswer{AttemptID: 1, QuestionID: 1, Response: "A"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if n, _ := store.Attempt().CountByTaker(ctx, 1, "s1"); n != 0 {
		t.Errorf("attempt survived rollback")
	}
	if answers, _ := store.Answer().ListByAttempt(ctx, 1); len(answers) != 0 {
		t.Errorf("answer survived rollback")
	}

	err = store.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Attempt().Create(ctx, newAttempt(1, "s1", 1))
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if n, _ := store.Attempt().CountByTaker(ctx, 1, "s1"); n != 1 {
		t.Errorf("committed attempt missing")
	}
}

func TestStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, taker := range []string{"s1", "s1", "s2"} {
		a := newAttempt(1, taker, i+1)
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_ = store.Attempt().Create(ctx, a)
	}
	_, _ = store.Attempt().MarkFinalized(ctx, 1, base)

	taker := "s1"
	mine, _ := store.Attempt().List(ctx, repositories.AttemptFilters{TakerID: &taker})
	if len(mine) != 2 || mine[0].ID != 2 {
		t.Fatalf("expected newest first for s1, got %+v", mine)
	}

	status := models.AttemptFinalized
	done, _ := store.Attempt().List(ctx, repositories.AttemptFilters{Status: &status})
	if len(done) != 1 || done[0].ID != 1 {
		t.Fatalf("expected only attempt 1 finalized, got %+v", done)
	}

	page, _ := store.Attempt().List(ctx, repositories.AttemptFilters{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestStore_DeleteByAssessment(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	keep := newAttempt(2, "s1", 1)
	drop := newAttempt(1, "s1", 1)
	_ = store.Attempt().Create(ctx, drop)
	_ = store.Attempt().Create(ctx, keep)
	_ = store.Answer().Upsert(ctx, &models.AttemptAnswer{AttemptID: drop.ID, QuestionID: 1, Response: "A"})
	_ = store.Answer().Upsert(ctx, &models.AttemptAnswer{AttemptID: keep.ID, QuestionID: 1, Response: "A"})

	if err := store.Answer().DeleteByAssessment(ctx, 1); err != nil {
		t.Fatalf("delete answers: %v", err)
	}
	if err := store.Attempt().DeleteByAssessment(ctx, 1); err != nil {
		t.Fatalf("delete attempts: %v", err)
	}

	if answers, _ := store.Answer().ListByAttempt(ctx, drop.ID); len(answers) != 0 {
		t.Error("answers of the deleted assessment survived")
	}
	if answers, _ := store.Answer().ListByAttempt(ctx, keep.ID); len(answers) != 1 {
		t.Error("answers of another assessment were removed")
	}
	if _, err := store.Attempt().GetByID(ctx, keep.ID); err != nil {
		t.Errorf("attempt of another assessment was removed: %v", err)
	}
}

func TestStore_Enrollment(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	_ = store.Enrollment().Upsert(ctx, &models.Enrollment{GroupID: 1, TakerID: "s1"})
	if ok, _ := store.Enrollment().IsEnrolled(ctx, 1, "s1"); !ok {
		t.Fatal("expected s1 to be enrolled")
	}

	_ = store.Enrollment().Upsert(ctx, &models.Enrollment{GroupID: 1, TakerID: "s1", Status: models.EnrollmentInactive})
	if ok, _ := store.Enrollment().IsEnrolled(ctx, 1, "s1"); ok {
		t.Fatal("inactive enrollment must not count")
	}
	if ok, _ := store.Enrollment().IsEnrolled(ctx, 2, "s1"); ok {
		t.Fatal("enrollment is per group")
	}
}

func TestUserDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewUserDirectory(&models.User{ID: "u1", FullName: "Ada"})
	dir.Put(&models.User{ID: "u2", Email: "b@example.com"})

	users, _ := dir.GetByIDs(ctx, []string{"u1", "missing", "u2"})
	if len(users) != 2 || users[1].DisplayName() != "b@example.com" {
		t.Fatalf("unexpected users %+v", users)
	}
	if _, err := dir.GetByID(ctx, "missing"); !repositories.IsNotFoundError(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
