package repositories

import (
	"context"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// QuestionRepository reads question content. Authoring happens in the question bank service.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	// GetByIDs returns the questions keyed by id. Missing ids are absent from the map.
	GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Question, error)
	// GetByIDsUncached is GetByIDs against the store itself. Scoring uses it
	// because question content is edited elsewhere without invalidating the cache.
	GetByIDsUncached(ctx context.Context, ids []uint) (map[uint]*models.Question, error)
	UpdateStatus(ctx context.Context, id uint, status models.QuestionStatus) error
}
