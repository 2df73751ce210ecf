package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentInactive EnrollmentStatus = "inactive"
)

// Enrollment ties a taker to the group that owns an assessment.
// Membership is maintained by the course service; the engine only reads it.
type Enrollment struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	GroupID    uint             `json:"group_id" gorm:"not null;uniqueIndex:idx_enrollment_group_taker"`
	TakerID    string           `json:"taker_id" gorm:"not null;size:255;uniqueIndex:idx_enrollment_group_taker;index"`
	Status     EnrollmentStatus `json:"status" gorm:"not null;default:active"`
	EnrolledAt time.Time        `json:"enrolled_at"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
