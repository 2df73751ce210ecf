package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

var hundred = decimal.NewFromInt(100)

// QuestionScore is the outcome for one question of an attempt.
type QuestionScore struct {
	QuestionID   uint
	Answered     bool
	IsCorrect    bool
	PointsEarned int
	Points       int
}

// ScoreResult is the aggregate produced by Score.
type ScoreResult struct {
	TotalPoints  int
	EarnedPoints int
	Percentage   decimal.Decimal
	Questions    []QuestionScore
}

// Grades returns the per-answer grades to write back to the ledger.
// Unanswered questions have no ledger row and are left out.
func (r *ScoreResult) Grades() []repositories.AnswerGrade {
	grades := make([]repositories.AnswerGrade, 0, len(r.Questions))
	for _, q := range r.Questions {
		if !q.Answered {
			continue
		}
		grades = append(grades, repositories.AnswerGrade{
			QuestionID:   q.QuestionID,
			IsCorrect:    q.IsCorrect,
			PointsEarned: q.PointsEarned,
		})
	}
	return grades
}

// Score grades questions in order against answers keyed by question id.
func Score(questions []*models.Question, answers map[uint]*models.AttemptAnswer) ScoreResult {
	result := ScoreResult{Questions: make([]QuestionScore, 0, len(questions))}

	for _, q := range questions {
		qs := QuestionScore{QuestionID: q.ID, Points: q.Points}
		if answer, ok := answers[q.ID]; ok && answer != nil {
			qs.Answered = true
			qs.IsCorrect = IsCorrectResponse(q, answer.Response)
		}
		if qs.IsCorrect {
			qs.PointsEarned = q.Points
		}

		result.TotalPoints += q.Points
		result.EarnedPoints += qs.PointsEarned
		result.Questions = append(result.Questions, qs)
	}

	result.Percentage = Percentage(result.EarnedPoints, result.TotalPoints)
	return result
}

// IsCorrectResponse compares trimmed, case-folded strings.
func IsCorrectResponse(q *models.Question, response string) bool {
	return strings.EqualFold(strings.TrimSpace(response), strings.TrimSpace(q.CorrectAnswer))
}

// Percentage is earned/total*100, or zero when total is zero.
func Percentage(earned, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(earned)).Mul(hundred).Div(decimal.NewFromInt(int64(total)))
}

// Passed reports earned/total*100 >= passingScore using integer arithmetic.
func Passed(earned, total, passingScore int) bool {
	if total <= 0 {
		return passingScore <= 0
	}
	return int64(earned)*100 >= int64(passingScore)*int64(total)
}
