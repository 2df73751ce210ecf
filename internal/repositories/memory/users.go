package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

// UserDirectory is a static user lookup used when no identity provider is configured.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserDirectory(users ...*models.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]models.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = *u
	}
	return d
}

func (d *UserDirectory) Put(user *models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = *user
}

func (d *UserDirectory) GetByID(ctx context.Context, id string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	return &u, nil
}

func (d *UserDirectory) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			users = append(users, &u)
		}
	}
	return users, nil
}
