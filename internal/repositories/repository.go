package repositories

import "context"

// Repository aggregates every store the attempt engine reads or writes.
type Repository interface {
	// Assessment domain
	Assessment() AssessmentRepository
	Pool() PoolRepository
	Enrollment() EnrollmentRepository

	// Question content
	Question() QuestionRepository

	// Attempt domain
	Attempt() AttemptRepository
	Answer() AnswerRepository

	// User domain (read-only, resolved from the identity provider)
	User() UserRepository

	// Transaction support. Every repository returned by the Repository passed
	// to fn participates in the same transaction.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
