// Command server runs the Mindwell HTTP backend.
//
// Startup order: env file, config, logging, tracing, database, upstream
// clients, services, timer manager, router, HTTP server. Shutdown reverses
// it: drain HTTP, stop timers, flush traces.
//
// @title        Mindwell API
// @version      1.0
// @description  Mindfulness backend: OAuth sessions, mood tracking, AI-generated exercises, guided chat, transcription, and practice history.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/mindwell/go-mindwell-backend/docs"
	"github.com/mindwell/go-mindwell-backend/internal/auth"
	"github.com/mindwell/go-mindwell-backend/internal/config"
	httpapi "github.com/mindwell/go-mindwell-backend/internal/http"
	"github.com/mindwell/go-mindwell-backend/internal/llm"
	"github.com/mindwell/go-mindwell-backend/internal/observability"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
	"github.com/mindwell/go-mindwell-backend/internal/services"
	"github.com/mindwell/go-mindwell-backend/internal/sysutil"
	"github.com/mindwell/go-mindwell-backend/internal/timer"
	"github.com/mindwell/go-mindwell-backend/internal/transcribe"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// sessionPurgeInterval is how often expired session rows are swept.
const sessionPurgeInterval = time.Hour

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	// Logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	// Database
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Warn().Err(err).Msg("gorm tracing plugin failed")
		}
	}

	// Upstream clients
	llmClient := llm.NewClient(
		cfg.OpenRouter.APIKey,
		cfg.OpenRouter.BaseURL,
		cfg.OpenRouter.Model,
		cfg.OpenRouter.Timeout,
		llm.WithReferer(cfg.Auth.BaseURL),
	)
	if !llmClient.Configured() {
		log.Warn().Msg("OPENROUTER_API_KEY not set; chat and generation endpoints will return errors")
	}
	transcribeClient := transcribe.NewClient(cfg.AssemblyAI.APIKey, cfg.AssemblyAI.BaseURL, cfg.AssemblyAI.Timeout)

	// Identity provider and auth service
	provider := auth.NewAuth0Provider(auth.Auth0Config{
		IssuerBaseURL: cfg.Auth.IssuerBaseURL,
		ClientID:      cfg.Auth.ClientID,
		ClientSecret:  cfg.Auth.ClientSecret,
		RedirectURL:   cfg.Auth.BaseURL + "/auth/callback",
	})
	authSvc := services.NewAuthService(db, provider, cfg.Auth.SessionTTL)

	// Exercises and the timer manager that completes them
	exerciseSvc := services.NewExerciseService(db, llmClient)
	manager := timer.NewManager(func(userID, exerciseID string) {
		if _, err := exerciseSvc.Complete(context.Background(), userID, exerciseID); err != nil {
			log.Error().Err(err).
				Str("user_id", userID).
				Str("exercise_id", exerciseID).
				Msg("timer completion record failed")
		}
	})

	// Periodic session sweep
	go func() {
		t := time.NewTicker(sessionPurgeInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n, err := authSvc.PurgeExpired(ctx); err != nil {
					log.Warn().Err(err).Msg("session purge failed")
				} else if n > 0 {
					log.Debug().Int64("deleted", n).Msg("expired sessions purged")
				}
			}
		}
	}()

	// Router
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Dependencies{
		DB:         db,
		LLM:        llmClient,
		Transcribe: transcribeClient,
		Auth:       authSvc,
		Exercises:  exerciseSvc,
		Timer:      manager,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	manager.Shutdown()
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("bye")
}
