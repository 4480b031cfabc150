// Command server runs the voice-profile API: HTTP transport, SQLite storage,
// the configured text generation backend, and (optionally) the background
// learning worker and its scheduler.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voicemirror/go-voice-backend/internal/config"
	httpapi "github.com/voicemirror/go-voice-backend/internal/http"
	"github.com/voicemirror/go-voice-backend/internal/observability"
	"github.com/voicemirror/go-voice-backend/internal/repo"
	"github.com/voicemirror/go-voice-backend/internal/services"
	"github.com/voicemirror/go-voice-backend/internal/sysutil"
	"github.com/voicemirror/go-voice-backend/internal/worker"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	backend, err := httpapi.NewBackend(ctx, cfg.Textgen)
	if err != nil {
		log.Fatal().Err(err).Msg("textgen backend setup failed")
	}
	log.Info().Str("backend", backend.Name()).Msg("text generation backend ready")

	r := gin.New()
	httpapi.RegisterRoutes(r, db, backend, cfg)

	if cfg.Worker.Enabled {
		client := worker.NewClient(cfg.Worker.RedisAddr)
		defer client.Close()

		profiles := services.NewProfileService(db)
		profiles.Weights = services.ConfidenceWeights{
			Sample:       cfg.Profile.SampleWeight,
			Range:        cfg.Profile.RangeWeight,
			Completeness: cfg.Profile.CompletenessWeight,
		}.Normalize()
		learning := &services.LearningService{
			DB:                   db,
			Profiles:             profiles,
			ResynthesisThreshold: cfg.Learning.ResynthesisThreshold,
		}

		srv := worker.NewServer(cfg.Worker, db, learning, profiles, client)
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("worker start failed")
		}
		defer srv.Shutdown()

		stopScheduler, err := worker.StartScheduler(cfg.Worker, cfg.Learning)
		if err != nil {
			log.Fatal().Err(err).Msg("scheduler start failed")
		}
		defer stopScheduler()
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
