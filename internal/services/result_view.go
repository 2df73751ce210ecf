package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

type questionFetcher func(ctx context.Context, ids []uint) (map[uint]*models.Question, error)

// loadOrderedQuestions fetches question content for ids and returns it in
// the same order. Missing questions are skipped with a warning.
func loadOrderedQuestions(ctx context.Context, fetch questionFetcher, logger *slog.Logger, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	byID, err := fetch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	questions := make([]*models.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			logger.Warn("Question content missing", "question_id", id)
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// buildResultView renders the full result of a finalized attempt, including
// every per-question detail. Callers filter it with applyVisibility.
func buildResultView(assessment *models.Assessment, attempt *models.AssessmentAttempt, questions []*models.Question, answers []*models.AttemptAnswer) *models.ResultView {
	view := &models.ResultView{
		AttemptID:       attempt.ID,
		AssessmentID:    attempt.AssessmentID,
		AssessmentTitle: assessment.Title,
		TakerID:         attempt.TakerID,
		ShowResults:     true,
		Summary: models.ScoreSummary{
			PassingScore: assessment.PassingScore,
			StartedAt:    attempt.CreatedAt,
		},
	}

	if attempt.TotalPoints != nil {
		view.Summary.TotalPoints = *attempt.TotalPoints
	}
	if attempt.EarnedPoints != nil {
		view.Summary.EarnedPoints = *attempt.EarnedPoints
	}
	if attempt.Percentage.Valid {
		view.Summary.Percentage = attempt.Percentage.Decimal
	}
	if attempt.Passed != nil {
		view.Summary.Passed = *attempt.Passed
	}
	if attempt.FinalizedAt != nil {
		view.Summary.FinalizedAt = *attempt.FinalizedAt
	}
	if attempt.ElapsedSeconds != nil {
		view.Summary.ElapsedSeconds = *attempt.ElapsedSeconds
	}

	byQuestion := answersByQuestion(answers)
	positions := questionPositions(attempt)
	optionOrder := attempt.OptionOrder.Data()

	view.Questions = make([]models.ResultQuestionView, 0, len(questions))
	for _, q := range questions {
		qv := models.ResultQuestionView{
			Position:      positions[q.ID],
			QuestionID:    q.ID,
			Type:          q.Type,
			Text:          q.Text,
			Options:       orderedOptions(q, optionOrder[q.ID]),
			Points:        q.Points,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
		if a, ok := byQuestion[q.ID]; ok {
			response := a.Response
			qv.Response = &response
			if a.IsCorrect != nil {
				qv.IsCorrect = *a.IsCorrect
			} else {
				qv.IsCorrect = IsCorrectResponse(q, a.Response)
			}
			qv.PointsEarned = a.PointsEarned
			if a.IsCorrect == nil && qv.IsCorrect {
				qv.PointsEarned = q.Points
			}
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

// applyVisibility returns a copy of view trimmed to the assessment's
// settings. fullAccess skips the trimming.
func applyVisibility(view *models.ResultView, settings models.AssessmentSettings, fullAccess bool) *models.ResultView {
	out := *view
	if fullAccess {
		out.ShowResults = true
		out.Questions = append([]models.ResultQuestionView(nil), view.Questions...)
		return &out
	}

	out.ShowResults = settings.ShowResults
	if !settings.ShowResults {
		out.Questions = nil
		return &out
	}

	out.Questions = make([]models.ResultQuestionView, len(view.Questions))
	copy(out.Questions, view.Questions)
	if !settings.ShowExplanations {
		for i := range out.Questions {
			out.Questions[i].Explanation = nil
		}
	}
	return &out
}
