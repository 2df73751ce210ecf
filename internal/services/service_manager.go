package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Policy AttemptPolicy

	// SamplerSeed seeds the sampler's random source. Zero seeds from the clock.
	SamplerSeed int64

	// ShutdownTimeout bounds how long Shutdown waits for the event publisher.
	ShutdownTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	cache     *cache.CacheManager
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	attemptService    AttemptService
	resultService     ResultService
	assessmentService AssessmentService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(
	repo repositories.Repository,
	cacheManager *cache.CacheManager,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
	config ServiceManagerConfig,
) ServiceManager {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	return &serviceManager{
		repo:      repo,
		cache:     cacheManager,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	sm.logger.Info("Initializing service manager",
		"hard_cutoff", sm.config.Policy.HardCutoff,
		"grace", sm.config.Policy.Grace)

	var src rand.Source
	if sm.config.SamplerSeed != 0 {
		src = rand.NewSource(sm.config.SamplerSeed)
	}
	sampler := NewSampler(src)

	sm.attemptService = NewAttemptService(sm.repo, sampler, sm.publisher, sm.cache, sm.logger, sm.validator, sm.config.Policy)
	sm.resultService = NewResultService(sm.repo, sm.cache, sm.logger)
	sm.assessmentService = NewAssessmentService(sm.repo, sm.cache, sm.logger, sm.validator)

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")
	return nil
}

// Service getters
func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attemptService
}

func (sm *serviceManager) Result() ResultService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.resultService
}

func (sm *serviceManager) Assessment() AssessmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.assessmentService
}

// HealthCheck pings the store and the cache. A missing cache is not an error.
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	if err := sm.cache.HealthCheck(ctx); err != nil && !errors.Is(err, cache.ErrCacheNotAvailable) {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

// Shutdown closes the event publisher. The repository is owned by the caller.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}
	sm.shutdown = true
	sm.logger.Info("Shutting down service manager")

	if sm.publisher == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, sm.config.ShutdownTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sm.publisher.Close() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to close event publisher: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher close timed out: %w", ctx.Err())
	}
}
