package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/voltlab/voltlab-api/internal/admission"
	"github.com/voltlab/voltlab-api/internal/config"
	"github.com/voltlab/voltlab-api/internal/platform/postgres"
	"github.com/voltlab/voltlab-api/internal/platform/segment"
	"github.com/voltlab/voltlab-api/internal/platform/sms"
	"github.com/voltlab/voltlab-api/internal/platform/vision"
	"github.com/voltlab/voltlab-api/internal/service/auth"
	"github.com/voltlab/voltlab-api/internal/service/membership"
	"github.com/voltlab/voltlab-api/internal/session"
	"github.com/voltlab/voltlab-api/internal/store"
	"github.com/voltlab/voltlab-api/internal/verification"
	"github.com/voltlab/voltlab-api/internal/worker"
)

// freeDailyAnalyses is the daily analysis allowance for non-VIP accounts.
const freeDailyAnalyses = 5

// verificationSweepInterval bounds how long expired codes linger in memory.
const verificationSweepInterval = 10 * time.Minute

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore      store.UserStore
	usageStore     store.UsageStore
	animationStore store.AnimationStore
	feedbackStore  store.FeedbackStore

	// Services
	jwtService       auth.JWTService
	passwordHasher   auth.PasswordHasher
	passwordVerifier auth.PasswordVerifier
	quota            *membership.Service
	codes            *verification.Store
	smsSender        sms.Sender
	analyzer         vision.Analyzer
	preloader        segment.Preloader

	// Concurrency core
	admission    *admission.Controller
	workerPool   *worker.Pool
	orchestrator *session.Orchestrator
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordHasher = auth.NewBcryptHasher(bcrypt.DefaultCost)
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Stores
	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.usageStore = postgres.NewPostgresUsageStore(db, logger)
	app.animationStore = postgres.NewPostgresAnimationStore(db, logger)
	app.feedbackStore = postgres.NewPostgresFeedbackStore(db, logger)
	app.quota = membership.NewService(app.usageStore, freeDailyAnalyses, logger)

	// Verification codes live in process memory; the sweeper reclaims
	// expired entries that are never looked up again.
	app.codes = verification.NewStore(logger)
	app.codes.StartSweeper(verificationSweepInterval)

	if cfg.SMS.GatewayURL != "" {
		app.smsSender = sms.NewGatewaySender(cfg.SMS, logger)
	} else {
		logger.Warn("no SMS gateway configured, codes will be logged only")
		app.smsSender = sms.NewLogSender(logger)
	}

	app.analyzer, err = vision.NewGeminiAnalyzer(ctx, logger, cfg.Vision.GeminiAPIKey, cfg.Vision.ModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vision analyzer: %w", err)
	}
	logger.Info("vision analyzer initialized", "model", cfg.Vision.ModelName)

	if cfg.Vision.PreloadURL != "" {
		app.preloader = segment.NewClient(cfg.Vision.PreloadURL, logger)
	} else {
		logger.Warn("no segmentation sidecar configured, embedding preload disabled")
		app.preloader = segment.NoopPreloader{}
	}

	// Concurrency core: admission gate in front of a shared worker pool.
	app.admission = admission.NewController(cfg.Admission.MaxSessions, cfg.Admission.MaxWaiters, logger)
	app.workerPool = worker.NewPool(cfg.Admission.WorkerCount, logger)
	app.orchestrator = session.NewOrchestrator(
		app.workerPool,
		time.Duration(cfg.Admission.UnitTimeoutSeconds)*time.Second,
		logger,
	)

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.codes != nil {
		app.codes.Stop()
	}

	if app.workerPool != nil {
		app.workerPool.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
