package services

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories/memory"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

const (
	ownerID = "teacher-1"
	takerID = "student-1"
	groupID = uint(7)
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	store     *memory.Store
	users     *memory.UserDirectory
	publisher *events.MockEventPublisher
	clock     *testClock

	attempts *attemptService
	results  *resultService
	admin    *assessmentService

	assessment *models.Assessment
	// questions keyed by their correct answer ("A", "B", ...)
	questions map[string]*models.Question
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	assessment models.Assessment
	answers    []string
	policy     AttemptPolicy
	cache      *cache.CacheManager
}

func withAssessment(fn func(a *models.Assessment)) fixtureOption {
	return func(c *fixtureConfig) { fn(&c.assessment) }
}

func withPoolAnswers(answers ...string) fixtureOption {
	return func(c *fixtureConfig) { c.answers = answers }
}

func withPolicy(p AttemptPolicy) fixtureOption {
	return func(c *fixtureConfig) { c.policy = p }
}

func withCache(cm *cache.CacheManager) fixtureOption {
	return func(c *fixtureConfig) { c.cache = cm }
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture seeds a published two-question assessment that takerID is
// enrolled in, with one point per question and answers "A" and "B".
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := fixtureConfig{
		assessment: models.Assessment{
			Title:         "Unit quiz",
			GroupID:       groupID,
			QuestionCount: 2,
			PassingScore:  50,
			MaxAttempts:   1,
			Status:        models.StatusPublished,
			CreatedBy:     ownerID,
			Settings: models.AssessmentSettings{
				ShowResults:      true,
				ShowExplanations: true,
			},
		},
		answers: []string{"A", "B"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()
	clock := &testClock{now: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
	users := memory.NewUserDirectory(
		&models.User{ID: takerID, FullName: "Ada Lovelace", Role: models.RoleStudent},
		&models.User{ID: ownerID, FullName: "Grace Hopper", Role: models.RoleTeacher},
	)
	store := memory.NewStore(users)
	logger := testLogger()
	publisher := events.NewMockEventPublisher(logger)
	v := validator.New()

	f := &fixture{
		t:         t,
		ctx:       ctx,
		store:     store,
		users:     users,
		publisher: publisher,
		clock:     clock,
		questions: make(map[string]*models.Question),
	}

	assessment := cfg.assessment
	if err := store.Assessment().Create(ctx, &assessment); err != nil {
		t.Fatalf("seed assessment: %v", err)
	}
	f.assessment = &assessment

	var poolIDs []uint
	for _, answer := range cfg.answers {
		explanation := "because " + answer
		q := &models.Question{
			Type:          models.SingleChoice,
			Text:          "Pick " + answer,
			Points:        1,
			CorrectAnswer: answer,
			Explanation:   &explanation,
			CreatedBy:     ownerID,
			Options: []models.QuestionOption{
				{ID: "A", Text: "Option A"},
				{ID: "B", Text: "Option B"},
				{ID: "C", Text: "Option C"},
				{ID: "D", Text: "Option D"},
			},
		}
		if err := store.Question().Create(ctx, q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
		f.questions[answer] = q
		poolIDs = append(poolIDs, q.ID)
	}
	if _, err := store.Pool().Add(ctx, assessment.ID, poolIDs); err != nil {
		t.Fatalf("seed pool: %v", err)
	}
	if err := store.Enrollment().Upsert(ctx, &models.Enrollment{GroupID: groupID, TakerID: takerID}); err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}

	sampler := NewSampler(rand.NewSource(42))
	f.attempts = NewAttemptService(store, sampler, publisher, cfg.cache, logger, v, cfg.policy).(*attemptService)
	f.attempts.now = clock.Now
	f.results = NewResultService(store, cfg.cache, logger).(*resultService)
	f.results.now = clock.Now
	f.admin = NewAssessmentService(store, cfg.cache, logger, v).(*assessmentService)
	f.admin.now = clock.Now

	return f
}

func (f *fixture) start() *models.AttemptView {
	f.t.Helper()
	view, err := f.attempts.Start(f.ctx, f.assessment.ID, takerID)
	if err != nil {
		f.t.Fatalf("start attempt: %v", err)
	}
	return view
}

func (f *fixture) answer(attemptID uint, correct, response string) {
	f.t.Helper()
	req := &models.SubmitAnswerRequest{QuestionID: f.questions[correct].ID, Response: response}
	if err := f.attempts.RecordAnswer(f.ctx, attemptID, req, takerID); err != nil {
		f.t.Fatalf("record answer for %s: %v", correct, err)
	}
}

func (f *fixture) finalize(attemptID uint) *models.ResultView {
	f.t.Helper()
	view, err := f.attempts.Finalize(f.ctx, attemptID, nil, takerID)
	if err != nil {
		f.t.Fatalf("finalize: %v", err)
	}
	return view
}

func (f *fixture) enroll(taker string) {
	f.t.Helper()
	if err := f.store.Enrollment().Upsert(f.ctx, &models.Enrollment{GroupID: groupID, TakerID: taker}); err != nil {
		f.t.Fatalf("enroll %s: %v", taker, err)
	}
}

func (f *fixture) eventsOfType(eventType events.EventType) []*events.Event {
	var out []*events.Event
	for _, e := range f.publisher.GetPublishedEvents() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
