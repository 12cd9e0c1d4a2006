package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/generator"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/seed"
	"github.com/SAP-F-2025/quiz-service/internal/session"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Auth
	CurrentUserTTL time.Duration

	// Collaborator timeouts
	GenerationTimeout time.Duration
	FeedbackTimeout   time.Duration

	// Sessions
	SessionTickInterval time.Duration
	NewTicker           TickerFunc
	SessionOptions      []session.Option

	// Apply the default users and tests to an empty store
	SeedDefaults bool
}

// Validate validates the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.CurrentUserTTL < 0 {
		errors = append(errors, "current user TTL cannot be negative")
	}
	if config.GenerationTimeout < 0 {
		errors = append(errors, "generation timeout cannot be negative")
	}
	if config.FeedbackTimeout < 0 {
		errors = append(errors, "feedback timeout cannot be negative")
	}
	if config.SessionTickInterval <= 0 {
		errors = append(errors, "session tick interval must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}
	return nil
}

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	Repo         repositories.Repository
	CacheManager *cache.CacheManager
	Generator    generator.Generator
	Publisher    events.EventPublisher
	Logger       *slog.Logger
	Validator    *validator.Validator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	// Service instances
	authService     AuthService
	testService     TestService
	attemptService  AttemptService
	gradingService  GradingService
	feedbackService FeedbackService
	reportService   ReportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Generator == nil {
		deps.Generator = generator.Unavailable{}
	}
	if deps.CacheManager == nil {
		deps.CacheManager = cache.NewCacheManager(nil)
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps Dependencies) ServiceManager {
	return NewServiceManager(deps, DefaultServiceManagerConfig())
}

func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		CurrentUserTTL:      24 * time.Hour,
		GenerationTimeout:   30 * time.Second,
		FeedbackTimeout:     15 * time.Second,
		SessionTickInterval: time.Second,
		SeedDefaults:        true,
	}
}

// Initialize sets up all services and applies the default data
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}

	sm.initializeServices()

	if sm.config.SeedDefaults {
		if _, err := seed.Apply(ctx, sm.deps.Repo, sm.deps.Logger); err != nil {
			return fmt.Errorf("failed to seed defaults: %w", err)
		}
	}

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() {
	d := sm.deps

	sm.authService = NewAuthService(d.Repo, d.Logger, d.Validator, sm.config.CurrentUserTTL)
	sm.deps.Logger.Info("Auth service initialized")

	sm.testService = NewTestService(d.Repo, d.Logger, d.Validator, d.Generator, d.Publisher, d.CacheManager, sm.config.GenerationTimeout)
	sm.deps.Logger.Info("Test service initialized")

	sm.gradingService = NewGradingService(d.Logger)
	sm.feedbackService = NewFeedbackService(d.Generator, d.CacheManager, d.Logger, sm.config.FeedbackTimeout)

	sm.attemptService = NewAttemptService(d.Repo, d.Logger, d.Validator, d.Publisher,
		sm.gradingService, sm.feedbackService, d.CacheManager,
		AttemptServiceConfig{
			TickInterval:   sm.config.SessionTickInterval,
			NewTicker:      sm.config.NewTicker,
			SessionOptions: sm.config.SessionOptions,
		})
	sm.deps.Logger.Info("Attempt service initialized")

	sm.reportService = NewReportService(d.Repo, d.CacheManager, d.Logger)
	sm.deps.Logger.Info("Report service initialized")
}

// Service getters

func (sm *serviceManager) ready() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.authService
}

func (sm *serviceManager) Test() TestService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.testService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.attemptService
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.gradingService
}

func (sm *serviceManager) Feedback() FeedbackService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.feedbackService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.reportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown stops session timers and closes the event publisher. Storage is
// owned by the repository manager and closed by the caller.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	var firstErr error
	if sm.attemptService != nil {
		if err := sm.attemptService.Shutdown(ctx); err != nil {
			sm.deps.Logger.Error("Failed to stop sessions", "error", err)
			firstErr = err
		}
	}

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return firstErr
}
