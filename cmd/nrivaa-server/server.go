package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/config"
	"github.com/nrivaa/nrivaa/internal/domain/account"
	"github.com/nrivaa/nrivaa/internal/domain/assistant"
	"github.com/nrivaa/nrivaa/internal/domain/labreport"
	"github.com/nrivaa/nrivaa/internal/domain/medication"
	"github.com/nrivaa/nrivaa/internal/domain/profile"
	"github.com/nrivaa/nrivaa/internal/domain/timeline"
	"github.com/nrivaa/nrivaa/internal/platform/accesslog"
	"github.com/nrivaa/nrivaa/internal/platform/apiresp"
	"github.com/nrivaa/nrivaa/internal/platform/auth"
	"github.com/nrivaa/nrivaa/internal/platform/blobstore"
	"github.com/nrivaa/nrivaa/internal/platform/db"
	"github.com/nrivaa/nrivaa/internal/platform/llm"
	"github.com/nrivaa/nrivaa/internal/platform/middleware"
)

const (
	version = "0.1.0"

	jsonBodyLimit  = "1M"
	requestTimeout = 30 * time.Second
)

// Routes that wait on the model or the storage API; those clients carry
// their own deadlines.
var timeoutExempt = []string{
	"/api/v1/assistant/chat",
	"/api/v1/lab-reports",
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e, err := newServer(cfg, pool, logger)
	if err != nil {
		return err
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance with every route registered. The pool
// is only touched when requests arrive.
func newServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*echo.Echo, error) {
	signingKey, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apiresp.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(jsonBodyLimit, cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders("/blobs/"))
	e.Use(middleware.RequestTimeout(requestTimeout, timeoutExempt...))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))

	blobs := newBlobStore(cfg, e)
	model := newModel(cfg)

	// Repositories
	userRepo := account.NewRepoPG(pool)
	profileRepo := profile.NewRepoPG(pool)
	timelineRepo := timeline.NewRepoPG(pool)
	medRepo := medication.NewRepoPG(pool)
	reportRepo := labreport.NewRepoPG(pool)
	messageRepo := assistant.NewRepoPG(pool)

	// Services
	timelineSvc := timeline.NewService(timelineRepo)
	profileSvc := profile.NewService(profileRepo)
	ids := account.NewAssigner(userRepo, cfg.CustomIDMaxAttempts, logger)
	accountSvc := account.NewService(userRepo, profileRepo, timelineSvc, ids, db.NewTxRunner(pool), logger)
	medSvc := medication.NewService(medRepo, timelineSvc, logger)
	analyzer := labreport.NewAnalyzer(model, labreport.DefaultRules(), logger)
	reportSvc := labreport.NewService(reportRepo, blobs, analyzer, profileSvc, timelineSvc, logger)
	assistantSvc := assistant.NewService(messageRepo, model, cfg.ChatHistoryTurns, logger)

	api := e.Group("/api/v1")
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware(jwtConfig(cfg, signingKey)))
	} else {
		api.Use(auth.JWTMiddleware(jwtConfig(cfg, signingKey)))
	}
	api.Use(account.LoadUserMiddleware(accountSvc))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))
	api.Use(middleware.Audit(logger, accesslog.NewRecorder(accesslog.NewStorePG(pool), logger)))

	account.NewHandler(accountSvc).RegisterRoutes(api)
	profile.NewHandler(profileSvc).RegisterRoutes(api)
	timeline.NewHandler(timelineSvc).RegisterRoutes(api)
	medication.NewHandler(medSvc).RegisterRoutes(api)
	labreport.NewHandler(reportSvc).RegisterRoutes(api)
	assistant.NewHandler(assistantSvc).RegisterRoutes(api)

	return e, nil
}

func jwtConfig(cfg *config.Config, signingKey []byte) auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: signingKey,
	}
}

// newBlobStore uses the external storage API when one is configured and
// otherwise keeps files in memory, served from this server's /blobs route.
func newBlobStore(cfg *config.Config, e *echo.Echo) blobstore.BlobStore {
	if cfg.BlobAPIURL != "" {
		return blobstore.NewHTTPBlobStore(blobstore.HTTPConfig{
			BaseURL: cfg.BlobAPIURL,
			APIKey:  cfg.BlobAPIKey,
		})
	}
	store := blobstore.NewInMemoryBlobStore("http://localhost:" + cfg.Port)
	blobstore.NewHandler(store).RegisterRoutes(e)
	return store
}

func newModel(cfg *config.Config) *llm.Client {
	return llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		APIKey:  cfg.LLMAPIKey,
		Timeout: cfg.LLMTimeout,
	})
}
