package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

type enrollmentKey struct {
	groupID uint
	takerID string
}

type answerKey struct {
	attemptID  uint
	questionID uint
}

// state is the full data set. Every value is stored as a private copy.
type state struct {
	seq         map[string]uint
	assessments map[uint]models.Assessment
	questions   map[uint]models.Question
	pool        map[uint][]models.PoolEntry
	enrollments map[enrollmentKey]models.Enrollment
	attempts    map[uint]models.AssessmentAttempt
	answers     map[answerKey]models.AttemptAnswer
}

func newState() *state {
	return &state{
		seq:         make(map[string]uint),
		assessments: make(map[uint]models.Assessment),
		questions:   make(map[uint]models.Question),
		pool:        make(map[uint][]models.PoolEntry),
		enrollments: make(map[enrollmentKey]models.Enrollment),
		attempts:    make(map[uint]models.AssessmentAttempt),
		answers:     make(map[answerKey]models.AttemptAnswer),
	}
}

func (s *state) nextID(table string) uint {
	s.seq[table]++
	return s.seq[table]
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.assessments {
		c.assessments[k] = v
	}
	for k, v := range s.questions {
		c.questions[k] = v
	}
	for k, v := range s.pool {
		c.pool[k] = append([]models.PoolEntry(nil), v...)
	}
	for k, v := range s.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range s.attempts {
		c.attempts[k] = copyAttempt(v)
	}
	for k, v := range s.answers {
		c.answers[k] = v
	}
	return c
}

// Store is a process-local Repository. A single mutex serializes all access,
// so every operation and every WithTransaction body is atomic.
type Store struct {
	mu    *sync.Mutex
	st    *state
	inTx  bool
	users repositories.UserRepository
	clock func() time.Time
}

// NewStore creates an empty store. users may be nil.
func NewStore(users repositories.UserRepository) *Store {
	if users == nil {
		users = NewUserDirectory()
	}
	return &Store{
		mu:    &sync.Mutex{},
		st:    newState(),
		users: users,
		clock: time.Now,
	}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Assessment() repositories.AssessmentRepository { return &assessmentRepo{s} }
func (s *Store) Pool() repositories.PoolRepository             { return &poolRepo{s} }
func (s *Store) Enrollment() repositories.EnrollmentRepository { return &enrollmentRepo{s} }
func (s *Store) Question() repositories.QuestionRepository     { return &questionRepo{s} }
func (s *Store) Attempt() repositories.AttemptRepository       { return &attemptRepo{s} }
func (s *Store) Answer() repositories.AnswerRepository         { return &answerRepo{s} }
func (s *Store) User() repositories.UserRepository             { return s.users }

// WithTransaction runs fn under the store lock and restores the previous
// state when fn returns an error.
func (s *Store) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true, users: s.users, clock: s.clock}
	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func copyAttempt(a models.AssessmentAttempt) models.AssessmentAttempt {
	a.QuestionOrder = append(a.QuestionOrder[:0:0], a.QuestionOrder...)
	return a
}
