package models

import (
	"time"
)

type AssessmentStatus string

const (
	StatusDraft     AssessmentStatus = "Draft"
	StatusPublished AssessmentStatus = "Published"
	StatusArchived  AssessmentStatus = "Archived"
)

type Assessment struct {
	ID               uint             `json:"id" gorm:"primaryKey"`
	Title            string           `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description      *string          `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	GroupID          uint             `json:"group_id" gorm:"not null;index"`
	QuestionCount    int              `json:"question_count" gorm:"not null" validate:"required,min=1"`
	TimeLimitMinutes *int             `json:"time_limit_minutes" validate:"omitempty,min=1"`
	PassingScore     int              `json:"passing_score" gorm:"not null;default:60" validate:"passing_score"`
	MaxAttempts      int              `json:"max_attempts" gorm:"not null;default:1" validate:"max_attempts"`
	StartTime        *time.Time       `json:"start_time"`
	EndTime          *time.Time       `json:"end_time"`
	Status           AssessmentStatus `json:"status" gorm:"default:Draft;index" validate:"omitempty,oneof=Draft Published Archived"`
	PublishedAt      *time.Time       `json:"published_at"`

	Settings AssessmentSettings `json:"settings" gorm:"embedded"`

	// Metadata
	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssessmentSettings holds the display flags that shape an attempt and its result view.
type AssessmentSettings struct {
	RandomizeQuestions bool `json:"randomize_questions" gorm:"not null;default:false;comment:Randomize question order"`
	RandomizeOptions   bool `json:"randomize_options" gorm:"not null;default:false;comment:Randomize answer options"`
	ShowResults        bool `json:"show_results" gorm:"not null;default:true;comment:Show per-question results after submission"`
	ShowExplanations   bool `json:"show_explanations" gorm:"not null;default:false;comment:Show explanations with results"`
}

func (Assessment) TableName() string {
	return "assessments"
}

func (a *Assessment) IsPublished() bool {
	return a.Status == StatusPublished
}

// TimeLimit returns the configured time limit, or zero when the assessment is untimed.
func (a *Assessment) TimeLimit() time.Duration {
	if a.TimeLimitMinutes == nil || *a.TimeLimitMinutes <= 0 {
		return 0
	}
	return time.Duration(*a.TimeLimitMinutes) * time.Minute
}

// PoolEntry marks a question as eligible for sampling into an assessment's attempts.
type PoolEntry struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	AssessmentID uint      `json:"assessment_id" gorm:"not null;uniqueIndex:idx_pool_assessment_question"`
	QuestionID   uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_pool_assessment_question;index"`
	CreatedAt    time.Time `json:"created_at"`
}

func (PoolEntry) TableName() string {
	return "assessment_pool_entries"
}
