package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/config"
	"github.com/oggyb/ember/internal/middleware"
)

// NewRouter builds the gin engine with the shared middleware chain and mounts
// every registrar under /api.
func NewRouter(appCtx *app.AppContext, registrars ...Registrar) *gin.Engine {
	cfg := appCtx.Config
	if cfg.App.ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logging(appCtx.Logger))
	r.Use(middleware.Metrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", health(appCtx))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.RateLimit(appCtx.RedisCache, middleware.RateLimitConfig{
		RequestsPerMinute: cfg.Limits.RequestsPerMinute,
		BurstSize:         cfg.Limits.RateLimitBurst,
	}))
	for _, reg := range registrars {
		reg.Register(api)
	}
	return r
}

func health(appCtx *app.AppContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := gin.H{"status": "ok", "db": "ok", "redis": "ok"}, http.StatusOK
		if sqlDB, err := appCtx.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["db"], status["status"], code = "down", "degraded", http.StatusServiceUnavailable
		}
		if err := appCtx.RedisCache.Ping(ctx); err != nil {
			status["redis"], status["status"], code = "down", "degraded", http.StatusServiceUnavailable
		}
		status["connections"] = appCtx.Registry.Count()
		c.JSON(code, status)
	}
}

// StartHTTPServer serves handler until ctx is canceled, then shuts down gracefully.
func StartHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	addr := cfg.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
