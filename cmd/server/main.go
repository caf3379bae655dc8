// Command server runs the urge counter HTTP backend.
//
// Startup order: env + config, logging, tracing, database (migrations),
// caches, retention scheduler, HTTP server. Shutdown reverses it on
// SIGINT/SIGTERM with a bounded grace period.
//
// @title           Urge Counter API
// @version         1.0
// @description     Urge ("hurry up, author!") counter service for tutorial pages.
// @BasePath        /api/v1
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
	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	_ "github.com/qlzhou/go-urge-backend/docs"
	"github.com/qlzhou/go-urge-backend/internal/config"
	httpapi "github.com/qlzhou/go-urge-backend/internal/http"
	"github.com/qlzhou/go-urge-backend/internal/observability"
	"github.com/qlzhou/go-urge-backend/internal/repo"
	"github.com/qlzhou/go-urge-backend/internal/services"
	"github.com/qlzhou/go-urge-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	start := time.Now()

	// .env is optional; real deployments use the process environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(repo.Options{
		Driver:          cfg.DB.Driver,
		Path:            cfg.DB.Path,
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Fatal().Err(err).Msg("gorm tracing plugin failed")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	caches := httpapi.NewCaches(cfg.Urge)

	cleanup := &services.CleanupService{
		DB:        db,
		Retention: time.Duration(cfg.Retention.Days) * 24 * time.Hour,
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler setup failed")
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Retention.Interval),
		gocron.NewTask(func() {
			if err := cleanup.Run(context.Background()); err != nil {
				log.Error().Err(err).Msg("scheduled cleanup failed")
			}
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("cleanup job setup failed")
	}
	scheduler.Start()

	r := gin.New()
	httpapi.RegisterRoutes(r, db, caches, cfg, start)

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
		log.Info().
			Str("addr", srv.Addr).
			Str("driver", cfg.DB.Driver).
			Str("version", version).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}
	caches.Stop()
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown error")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("shutdown complete")
}
