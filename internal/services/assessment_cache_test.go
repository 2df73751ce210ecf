package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

// recachingRepo re-caches the last committed assessment right after every
// in-transaction write, the way a concurrent read-through would before COMMIT.
type recachingRepo struct {
	repositories.Repository
	cm        *cache.CacheManager
	committed *models.Assessment
}

func (r *recachingRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.Repository.WithTransaction(ctx, func(tx repositories.Repository) error {
		return fn(&recachingRepo{Repository: tx, cm: r.cm, committed: r.committed})
	})
}

func (r *recachingRepo) Assessment() repositories.AssessmentRepository {
	return &recachingAssessments{AssessmentRepository: r.Repository.Assessment(), repo: r}
}

type recachingAssessments struct {
	repositories.AssessmentRepository
	repo *recachingRepo
}

func (a *recachingAssessments) recache(ctx context.Context) {
	_ = a.repo.cm.Assessment.Set(ctx, cache.AssessmentKey(a.repo.committed.ID), a.repo.committed, cache.AssessmentCacheConfig.TTL)
}

func (a *recachingAssessments) UpdateStatus(ctx context.Context, id uint, status models.AssessmentStatus, publishedAt *time.Time) error {
	if err := a.AssessmentRepository.UpdateStatus(ctx, id, status, publishedAt); err != nil {
		return err
	}
	a.recache(ctx)
	return nil
}

func (a *recachingAssessments) Delete(ctx context.Context, id uint) error {
	if err := a.AssessmentRepository.Delete(ctx, id); err != nil {
		return err
	}
	a.recache(ctx)
	return nil
}

func TestAssessmentService_InvalidatesAfterCommit(t *testing.T) {
	tests := []struct {
		name    string
		status  models.AssessmentStatus
		run     func(f *fixture, s *assessmentService) error
		wantErr error
		want    models.AssessmentStatus
	}{
		{
			name:   "publish",
			status: models.StatusDraft,
			run: func(f *fixture, s *assessmentService) error {
				_, err := s.Publish(f.ctx, f.assessment.ID, ownerID)
				return err
			},
			want: models.StatusPublished,
		},
		{
			name:   "unpublish",
			status: models.StatusPublished,
			run: func(f *fixture, s *assessmentService) error {
				_, err := s.Unpublish(f.ctx, f.assessment.ID, ownerID)
				return err
			},
			want: models.StatusDraft,
		},
		{
			name:   "delete",
			status: models.StatusPublished,
			run: func(f *fixture, s *assessmentService) error {
				return s.Delete(f.ctx, f.assessment.ID, ownerID)
			},
			wantErr: repositories.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			cm := cache.NewCacheManager(client)

			f := newFixture(t, withAssessment(func(a *models.Assessment) { a.Status = tt.status }))
			committed, err := f.store.Assessment().GetByID(f.ctx, f.assessment.ID)
			if err != nil {
				t.Fatalf("load assessment: %v", err)
			}
			repo := &recachingRepo{Repository: f.store, cm: cm, committed: committed}
			s := NewAssessmentService(repo, cm, testLogger(), f.admin.validator).(*assessmentService)

			if err := tt.run(f, s); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}

			key := cache.AssessmentCacheConfig.Prefix + cache.AssessmentKey(f.assessment.ID)
			if mr.Exists(key) {
				t.Fatalf("expected %s to be dropped after commit", key)
			}

			var got models.Assessment
			err = cm.Assessment.CacheOrExecute(f.ctx, cache.AssessmentKey(f.assessment.ID), &got, cache.AssessmentCacheConfig.TTL, func() (interface{}, error) {
				return f.store.Assessment().GetByID(f.ctx, f.assessment.ID)
			})
			if tt.wantErr != nil {
				if !repositories.IsNotFoundError(err) {
					t.Fatalf("expected not found after delete, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("read through cache: %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("cached status = %s, want %s", got.Status, tt.want)
			}
		})
	}
}
