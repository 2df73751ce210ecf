package repositories

import (
	"context"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// UserRepository interface for user operations (read-only for the attempt engine)
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDs skips users that cannot be resolved.
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
}
