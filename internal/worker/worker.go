package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/voicemirror/go-voice-backend/internal/config"
	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/repo"
	"github.com/voicemirror/go-voice-backend/internal/services"
)

// zerologAdapter bridges the global zerolog logger to the asynq.Logger
// interface so worker internals log through the same pipeline as the HTTP
// layer.
type zerologAdapter struct{}

func (zerologAdapter) Debug(args ...interface{}) { log.Debug().Msg(fmt.Sprint(args...)) }
func (zerologAdapter) Info(args ...interface{})  { log.Info().Msg(fmt.Sprint(args...)) }
func (zerologAdapter) Warn(args ...interface{})  { log.Warn().Msg(fmt.Sprint(args...)) }
func (zerologAdapter) Error(args ...interface{}) { log.Error().Msg(fmt.Sprint(args...)) }
func (zerologAdapter) Fatal(args ...interface{}) { log.Fatal().Msg(fmt.Sprint(args...)) }

// Enqueuer is the subset of Client the sweep handler needs. Narrowing it to
// an interface keeps the fan-out testable without Redis.
type Enqueuer interface {
	EnqueueLearningPass(ctx context.Context, userID string, platform domain.Platform) error
}

// Server wraps an asynq.Server with the task handlers wired to the
// application services.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// NewServer builds a worker server from configuration. The learning service
// drives metric recomputation, the profile service handles explicit
// resynthesis, and client is used by the sweep to fan out per-pair passes.
func NewServer(cfg config.WorkerConfig, db *gorm.DB, learning *services.LearningService, profiles *services.ProfileService, client Enqueuer) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			Concurrency:     cfg.Concurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(logTaskError),
			Logger:          zerologAdapter{},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskLearningPass, HandleLearningPass(learning))
	mux.HandleFunc(TaskProfileResynthesis, HandleProfileResynthesis(profiles))
	mux.HandleFunc(TaskLearningSweep, HandleLearningSweep(db, client))
	return &Server{srv: srv, mux: mux}
}

// Run starts the worker and blocks until a shutdown signal arrives.
func (s *Server) Run() error {
	return s.srv.Run(s.mux)
}

// Start runs the worker in the background. Callers coordinate shutdown via
// Shutdown.
func (s *Server) Start() error {
	return s.srv.Start(s.mux)
}

// Shutdown drains in-flight tasks and stops the worker.
func (s *Server) Shutdown() {
	s.srv.Shutdown()
}

// HandleLearningPass returns the handler for TaskLearningPass. Malformed or
// invalid payloads are dropped rather than retried; service failures are
// retryable.
func HandleLearningPass(learning *services.LearningService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := decodeTarget(task)
		if err != nil {
			return err
		}
		m, err := learning.Run(ctx, p.UserID, p.Platform)
		if err != nil {
			return fmt.Errorf("learning pass for %s/%s: %w", p.UserID, p.Platform, err)
		}
		log.Info().
			Str("user_id", p.UserID).
			Str("platform", string(p.Platform)).
			Int64("thumbs_up", m.ThumbsUp).
			Int64("thumbs_down", m.ThumbsDown).
			Float64("satisfaction_rate", m.SatisfactionRate).
			Msg("learning pass completed")
		return nil
	}
}

// HandleProfileResynthesis returns the handler for TaskProfileResynthesis.
// A version conflict means a concurrent synthesis already committed, which is
// a satisfied outcome, not a failure.
func HandleProfileResynthesis(profiles *services.ProfileService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := decodeTarget(task)
		if err != nil {
			return err
		}
		prof, err := profiles.Synthesize(ctx, p.UserID, p.Platform)
		if err != nil {
			if errors.Is(err, services.ErrProfileConflict) {
				log.Info().
					Str("user_id", p.UserID).
					Str("platform", string(p.Platform)).
					Msg("resynthesis skipped, concurrent version committed")
				return nil
			}
			return fmt.Errorf("resynthesis for %s/%s: %w", p.UserID, p.Platform, err)
		}
		log.Info().
			Str("user_id", p.UserID).
			Str("platform", string(p.Platform)).
			Str("version", prof.Version).
			Msg("profile resynthesized")
		return nil
	}
}

// HandleLearningSweep returns the handler for TaskLearningSweep. It lists
// every user×platform pair with unprocessed feedback and enqueues one
// learning pass per pair. Enqueue failures abort the sweep; the next
// scheduled run picks the remainder up again.
func HandleLearningSweep(db *gorm.DB, q Enqueuer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		targets, err := repo.ListLearningTargets(ctx, db)
		if err != nil {
			return fmt.Errorf("list learning targets: %w", err)
		}
		for _, tgt := range targets {
			if err := q.EnqueueLearningPass(ctx, tgt.UserID, tgt.Platform); err != nil {
				return fmt.Errorf("enqueue pass for %s/%s: %w", tgt.UserID, tgt.Platform, err)
			}
		}
		log.Info().Int("targets", len(targets)).Msg("learning sweep enqueued")
		return nil
	}
}

// decodeTarget unmarshals and validates a TargetPayload. Validation failures
// wrap asynq.SkipRetry since a bad payload never becomes good.
func decodeTarget(task *asynq.Task) (TargetPayload, error) {
	var p TargetPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
	}
	if p.UserID == "" || !p.Platform.Valid() {
		return p, fmt.Errorf("invalid target %q/%q: %w", p.UserID, p.Platform, asynq.SkipRetry)
	}
	return p, nil
}

// logTaskError reports task failures, flagging the terminal retry so dead
// tasks stand out in the logs.
func logTaskError(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	ev := log.Error().
		Str("task_type", task.Type()).
		Int("retry_count", retried).
		Int("max_retry", maxRetry).
		Err(err)
	if retried >= maxRetry {
		ev = ev.Bool("dead", true)
	}
	ev.Msg("task execution failed")
}
