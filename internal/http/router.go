// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, session resolution, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/config"
	"github.com/mindwell/go-mindwell-backend/internal/http/handlers"
	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
	"github.com/mindwell/go-mindwell-backend/internal/llm"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
	"github.com/mindwell/go-mindwell-backend/internal/services"
	"github.com/mindwell/go-mindwell-backend/internal/timer"
	"github.com/mindwell/go-mindwell-backend/internal/transcribe"
)

// Dependencies carries the long-lived components constructed in main. The
// remaining services are cheap and assembled here.
type Dependencies struct {
	DB         *gorm.DB
	LLM        *llm.Client
	Transcribe *transcribe.Client
	Auth       *services.AuthService
	Exercises  *services.ExerciseService
	Timer      *timer.Manager
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), the session gate,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Session gate: one cookie lookup per request, redirects for pages
//  8. Idempotency validator (after the gate so keys scope per user)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, deps Dependencies, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (26 MiB, leaves room for audio uploads)
	r.Use(limitBody(26 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Session gate: resolves the cookie once and enforces page redirects
	r.Use(middleware.SessionGate(deps.Auth, middleware.DefaultGateOptions(cfg.Auth.CookieName)))

	// 8) Idempotency validation (after the gate, before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: true, // session cookie auth
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/clients
	moodSvc := services.NewMoodService(db)
	chatSvc := services.NewChatService(db, deps.LLM)
	chatSvc.Model = cfg.OpenRouter.Model
	historySvc := services.NewHistoryService(db, moodSvc)
	profileSvc := services.NewProfileService(db)

	authH := handlers.NewAuthHandlers(deps.Auth, cfg.Auth.CookieName, cfg.Auth.CookieSecure, cfg.Auth.SessionTTL)
	aiH := handlers.NewAIHandlers(deps.LLM, deps.Transcribe)
	moodH := handlers.NewMoodHandlers(moodSvc, db, cfg.IdempotencyTTL)
	exH := handlers.NewExerciseHandlers(deps.Exercises, db)
	chatH := handlers.NewChatAPIHandlers(chatSvc)
	histH := handlers.NewHistoryHandlers(historySvc)
	setH := handlers.NewSettingsHandlers(historySvc)
	profH := handlers.NewProfileHandlers(profileSvc)
	timerH := handlers.NewTimerHandlers(deps.Timer, deps.Exercises)

	// Browser-facing auth flow
	r.GET("/auth/login", authH.Login)
	r.GET("/auth/callback", authH.Callback)
	r.POST("/auth/signout", authH.Signout)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(gzip.Gzip(gzip.DefaultCompression))

	// The OAuth callback may land on the API prefix depending on the
	// provider configuration; it must stay outside RequireUser.
	api.GET("/auth/callback", authH.Callback)

	authed := api.Group("")
	authed.Use(middleware.RequireUser())
	{
		// AI pass-through
		authed.POST("/chat", aiH.ChatProxy)
		authed.POST("/openrouter", aiH.ChatProxy)
		authed.GET("/openrouter/test", aiH.OpenRouterTest)
		authed.POST("/test-transcribe", aiH.TranscribeAudio)

		// Persisted conversations
		authed.POST("/chat/sessions", chatH.CreateSession)
		authed.GET("/chat/sessions", chatH.ListSessions)
		authed.PUT("/chat/sessions/:id", chatH.RenameSession)
		authed.GET("/chat/sessions/:id/messages", chatH.ListMessages)
		authed.POST("/chat/sessions/:id/messages", chatH.SendMessage)

		// Moods
		authed.POST("/moods", moodH.RecordMood)
		authed.GET("/moods", moodH.ListMoods)
		authed.GET("/moods/weekly-average", moodH.WeeklyAverage)
		authed.DELETE("/moods/:id", moodH.DeleteMood)

		// Exercises
		authed.POST("/exercises/generate", exH.GenerateExercise)
		authed.GET("/exercises", exH.ListExercises)
		authed.GET("/exercises/search", exH.SearchExercises)
		authed.GET("/exercises/:id", exH.GetExercise)
		authed.POST("/exercises/:id/complete", exH.CompleteExercise)
		authed.DELETE("/exercises/:id", exH.DeleteExercise)

		// History and dashboard
		authed.POST("/history", histH.LogSession)
		authed.GET("/history", histH.ListHistory)
		authed.GET("/dashboard/summary", histH.DashboardSummary)

		// Settings and profile
		authed.GET("/settings/audio", setH.GetAudioSettings)
		authed.PUT("/settings/audio", setH.SaveAudioSettings)
		authed.GET("/profile", profH.GetProfile)
		authed.PUT("/profile", profH.UpdateProfile)

		// Exercise timer
		authed.POST("/timer/start", timerH.StartTimer)
		authed.GET("/timer/:id", timerH.TimerStatus)
		authed.POST("/timer/:id/pause", timerH.PauseTimer)
		authed.POST("/timer/:id/resume", timerH.ResumeTimer)
		authed.POST("/timer/:id/reset", timerH.ResetTimer)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
