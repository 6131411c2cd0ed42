package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careportal/access-core/internal/auth"
	"github.com/careportal/access-core/internal/cache"
	"github.com/careportal/access-core/internal/config"
	"github.com/careportal/access-core/internal/database"
	"github.com/careportal/access-core/internal/handlers"
	"github.com/careportal/access-core/internal/middleware"
	"github.com/careportal/access-core/internal/models"
	"github.com/careportal/access-core/internal/repository"
	"github.com/careportal/access-core/internal/services"
	"github.com/careportal/access-core/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting clinic access core")

	// Connect to database
	dbConfig := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		LogLevel: cfg.Database.LogLevel,
	}

	if err := database.Connect(dbConfig); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Initialize the login-path counter store
	var counters cache.Counters
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		counters, err = cache.NewRedisCounters(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis counter store initialized")
	} else {
		counters = cache.NewMemoryCounters()
		log.Info().Msg("Memory counter store initialized")
	}
	defer counters.Close()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository()
	auditRepo := repository.NewAuditRepository()
	consentRepo := repository.NewConsentRepository()
	clinicalRepo := repository.NewClinicalRepository()
	requestRepo := repository.NewRequestRepository()

	// Initialize core components
	limiter := auth.NewRateLimiter(
		counters,
		cfg.Auth.MaxLoginFailures,
		cfg.Auth.FailureWindow,
		cfg.Auth.LockoutBase,
		cfg.Auth.LockoutMax,
	)
	tokens := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, accountRepo)
	policies := models.DefaultRetentionPolicies()

	// Initialize services
	auditService := services.NewAuditService(auditRepo)
	authService := services.NewAuthService(accountRepo, auditService, tokens, limiter)
	clinicalService := services.NewClinicalService(clinicalRepo, accountRepo, auditService)
	gdprService := services.NewGDPRService(accountRepo, clinicalRepo, consentRepo, requestRepo, auditService, policies)
	retention := services.NewRetentionScheduler(accountRepo, clinicalRepo, auditService, policies, cfg.Retention.SweepInterval, cfg.Retention.BatchSize)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, accountRepo)
	gdprHandler := handlers.NewGDPRHandler(gdprService)
	auditHandler := handlers.NewAuditHandler(auditService)
	clinicalHandler := handlers.NewClinicalHandler(clinicalService)

	authenticator := middleware.NewAuthenticator(tokens)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no authentication required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Public endpoints
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register/{role}", authHandler.Register)
		r.Post("/login/{role}", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticator.Require)
			r.Post("/logout", authHandler.Logout)
			r.Get("/profile", authHandler.Profile)
			r.Post("/password", authHandler.ChangePassword)
		})
	})

	// Data-subject rights
	r.Route("/api/gdpr", func(r chi.Router) {
		r.Get("/processing-purposes", gdprHandler.ProcessingPurposes)

		r.Group(func(r chi.Router) {
			r.Use(authenticator.Require)
			r.Get("/export", gdprHandler.Export)
			r.Put("/rectify", gdprHandler.Rectify)
			r.Delete("/erase", gdprHandler.Erase)
			r.Get("/consent", gdprHandler.ConsentStatus)
			r.Post("/consent", gdprHandler.UpdateConsent)
			r.Get("/requests", gdprHandler.Requests)
			r.Delete("/requests/{id}", gdprHandler.CancelRequest)
		})
	})

	// Protected domain endpoints
	r.Group(func(r chi.Router) {
		r.Use(authenticator.Require)
		r.Get("/api/audit/events", auditHandler.Events)
		r.Get("/api/patients", clinicalHandler.Patients)
		r.Get("/api/doctors", clinicalHandler.Doctors)
		r.Get("/api/appointments", clinicalHandler.Appointments)
		r.Post("/api/appointments", clinicalHandler.BookAppointment)
		r.Get("/api/notes", clinicalHandler.Notes)
		r.Post("/api/notes", clinicalHandler.WriteNote)
	})

	// Start the retention sweep off the request path
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go retention.Run(sweepCtx)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopSweep()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
