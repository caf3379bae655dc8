// Package httpapi wires the HTTP transport (Gin) to the urge service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
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

	"github.com/qlzhou/go-urge-backend/internal/cache"
	"github.com/qlzhou/go-urge-backend/internal/config"
	"github.com/qlzhou/go-urge-backend/internal/http/handlers"
	"github.com/qlzhou/go-urge-backend/internal/http/middleware"
	"github.com/qlzhou/go-urge-backend/internal/repo"
	"github.com/qlzhou/go-urge-backend/internal/services"
)

// dbShim adapts the repo free functions to the health probe interface the
// handlers expect. It keeps handlers decoupled from the concrete repo package.
type dbShim struct{ db *gorm.DB }

func (s dbShim) Ping(ctx context.Context) error { return repo.Ping(ctx, s.db) }
func (s dbShim) Pool() repo.PoolStats           { return repo.Pool(s.db) }

// Caches groups the three read-path caches so the router can hand them to the
// service with one argument.
type Caches struct {
	Limits *cache.Cache[repo.LimitStatus]
	Counts *cache.Cache[int64]
	Stats  *cache.Cache[repo.UrgeStats]
}

// NewCaches builds the cache set sized and swept per configuration. Sweepers
// are started here; call Stop on each cache during shutdown.
func NewCaches(cfg config.UrgeConfig) Caches {
	cs := Caches{
		Limits: cache.New[repo.LimitStatus](cfg.CacheMaxItems, cfg.LimitTTL),
		Counts: cache.New[int64](cfg.CacheMaxItems, cfg.CountTTL),
		Stats:  cache.New[repo.UrgeStats](cfg.CacheMaxItems, cfg.StatsTTL),
	}
	cs.Limits.StartSweeper(cfg.SweepInterval)
	cs.Counts.StartSweeper(cfg.SweepInterval)
	cs.Stats.StartSweeper(cfg.SweepInterval)
	return cs
}

// Stop halts the background sweepers of all caches.
func (cs Caches) Stop() {
	cs.Limits.Stop()
	cs.Counts.Stop()
	cs.Stats.Stop()
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (token bucket per IP)
//  8. Gzip, CORS, security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, caches Caches, cfg config.Config, start time.Time) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB); urge requests carry no meaningful body
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	// 8) Compression, CORS, security headers
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.CodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.CodeMethodNotAllowed, "method not allowed")
	})

	// Dependency injection: service ← db + caches + policy
	svc := &services.UrgeService{
		DB:        db,
		Limits:    caches.Limits,
		Counts:    caches.Counts,
		Stats:     caches.Stats,
		MaxPerDay: cfg.Urge.MaxPerDay,
		Window:    cfg.Urge.Window,
		LimitTTL:  cfg.Urge.LimitTTL,
		CountTTL:  cfg.Urge.CountTTL,
		StatsTTL:  cfg.Urge.StatsTTL,
	}
	h := handlers.New(svc, dbShim{db: db}, start)

	// Health with dependency detail
	r.GET("/health", h.Health)

	// API docs (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/urge/:tutorialId", h.PostUrge)
		api.GET("/urge/:tutorialId", h.GetUrge)
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
