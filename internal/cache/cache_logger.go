package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateAssessmentCache drops the cached assessment settings
func InvalidateAssessmentCache(ctx context.Context, cm *CacheManager, assessmentID uint) {
	SafeDelete(ctx, cm.Assessment, AssessmentKey(assessmentID))
}

// InvalidateQuestionCache drops the cached question content
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID uint) {
	SafeDelete(ctx, cm.Question, QuestionKey(questionID))
}

// InvalidateResultCache drops every cached result view of an assessment
func InvalidateResultCache(ctx context.Context, cm *CacheManager, assessmentID uint) {
	SafeInvalidatePattern(ctx, cm.Result, fmt.Sprintf("assessment:%d:*", assessmentID))
}

// ResultKey is the cache key of a finalized attempt's result view
func ResultKey(assessmentID, attemptID uint) string {
	return fmt.Sprintf("assessment:%d:attempt:%d", assessmentID, attemptID)
}

// AssessmentKey is the cache key of an assessment's settings
func AssessmentKey(assessmentID uint) string {
	return fmt.Sprintf("id:%d", assessmentID)
}

// QuestionKey is the cache key of a question's content
func QuestionKey(questionID uint) string {
	return fmt.Sprintf("id:%d", questionID)
}
