package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "attempt-engine"
	EventVersion = "1.0"
)

type EventType string

const (
	AttemptStarted   EventType = "attempt.started"
	AttemptFinalized EventType = "attempt.finalized"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type AttemptStartedData struct {
	AttemptID     uint      `json:"attempt_id"`
	AssessmentID  uint      `json:"assessment_id"`
	TakerID       string    `json:"taker_id"`
	AttemptNumber int       `json:"attempt_number"`
	QuestionCount int       `json:"question_count"`
	StartedAt     time.Time `json:"started_at"`
}

type AttemptFinalizedData struct {
	AttemptID      uint      `json:"attempt_id"`
	AssessmentID   uint      `json:"assessment_id"`
	TakerID        string    `json:"taker_id"`
	EarnedPoints   int       `json:"earned_points"`
	TotalPoints    int       `json:"total_points"`
	Percentage     string    `json:"percentage"`
	Passed         bool      `json:"passed"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	FinalizedAt    time.Time `json:"finalized_at"`
}

// EventPublisher delivers events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
