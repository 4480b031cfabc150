package worker

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/voicemirror/go-voice-backend/internal/config"
)

// StartScheduler registers the periodic learning sweep on the configured
// schedule (an asynq cron spec, e.g. "@every 1h") and starts the scheduler.
// It returns a stop function for graceful shutdown.
func StartScheduler(worker config.WorkerConfig, learning config.LearningConfig) (stop func(), err error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: worker.RedisAddr},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
			Logger:   zerologAdapter{},
		},
	)

	// Uniqueness prevents a second sweep from stacking up when one is
	// already queued or running.
	task := asynq.NewTask(
		TaskLearningSweep,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Hour),
	)

	entryID, err := scheduler.Register(learning.Schedule, task)
	if err != nil {
		return nil, fmt.Errorf("register learning sweep: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	log.Info().
		Str("schedule", learning.Schedule).
		Str("entry_id", entryID).
		Msg("learning sweep scheduled")
	return func() { scheduler.Shutdown() }, nil
}
