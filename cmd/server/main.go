package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mathwizard/internal/config"
	"mathwizard/internal/credentials"
	"mathwizard/internal/database"
	"mathwizard/internal/handlers"
	"mathwizard/internal/logging"
	"mathwizard/internal/repository"
	"mathwizard/internal/security"
	"mathwizard/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	logging.Info().Str("type", cfg.Database.Type).Msg("Database connection established")

	if err := db.RunMigrations(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize repositories
	parentRepo := repository.NewParentRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	childRepo := repository.NewChildRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	logRepo := repository.NewSystemLogRepository(db)
	topicRepo := repository.NewTopicRepository(db)

	// Initialize services
	codec := credentials.NewCodec(cfg.Auth.BcryptCost)
	emailService, err := service.NewEmailService(ctx, cfg.Email, cfg.Server.FrontendURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize email service")
	}

	authService := service.NewAuthService(parentRepo, schoolRepo, childRepo, codec, credentials.NewIssuer(), emailService, cfg.Auth)
	rosterService := service.NewRosterService(parentRepo, childRepo, codec)
	partnerService := service.NewPartnerService(parentRepo, partnerRepo, codec)
	parentService := service.NewParentService(parentRepo)
	auditService := service.NewAuditService(logRepo)
	adminService := service.NewAdminService(parentRepo, schoolRepo, auditService)
	topicService := service.NewTopicService(topicRepo)
	checkoutService := service.NewCheckoutService(cfg.Checkout)
	backupService := service.NewBackupService(parentRepo, partnerRepo, schoolRepo, childRepo, logRepo, cfg.Database.Type)

	if !cfg.Auth.AdminEnabled() {
		logging.Warn().Msg("ADMIN_EMAIL/ADMIN_PASSWORD not set: admin login disabled")
	}

	sessions, err := security.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionDuration)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize sessions")
	}
	authorizer, err := security.NewAuthorizer()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorizer")
	}

	// Initialize handlers
	router := handlers.NewRouter(handlers.RouterConfig{
		Middleware:        handlers.NewMiddleware(sessions, authorizer),
		Auth:              handlers.NewAuthHandler(authService, sessions),
		Children:          handlers.NewChildHandler(rosterService),
		Parents:           handlers.NewParentHandler(parentService, partnerService, checkoutService),
		Admin:             handlers.NewAdminHandler(adminService, backupService),
		Topics:            handlers.NewTopicHandler(topicService),
		Health:            handlers.NewHealthHandler(db),
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Auth.RateLimitRequests,
		RateLimitWindow:   cfg.Auth.RateLimitWindow,
	})

	// Start server
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logging.Fatal().Err(err).Msg("Server failed")
	case <-ctx.Done():
	}

	logging.Info().Msg("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
		os.Exit(1)
	}
	logging.Info().Msg("Server stopped")
}
