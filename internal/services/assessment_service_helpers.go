package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

// ===== ACCESS HELPERS =====

func (s *assessmentService) getOwned(ctx context.Context, id uint, userID, action string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, id)
	return s.checkOwner(assessment, err, id, userID, action)
}

// lockOwned reads the assessment with a row lock held until tx ends.
func (s *assessmentService) lockOwned(ctx context.Context, tx repositories.Repository, id uint, userID, action string) (*models.Assessment, error) {
	assessment, err := tx.Assessment().GetByIDForUpdate(ctx, id)
	return s.checkOwner(assessment, err, id, userID, action)
}

func (s *assessmentService) checkOwner(assessment *models.Assessment, err error, id uint, userID, action string) (*models.Assessment, error) {
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if assessment.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "assessment", action, "not owner")
	}
	return assessment, nil
}

func (s *assessmentService) reload(ctx context.Context, id uint) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to reload assessment: %w", err)
	}
	return assessment, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
