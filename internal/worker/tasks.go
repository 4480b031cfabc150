// Package worker runs background learning and resynthesis tasks on an Asynq
// queue backed by Redis. The HTTP API stays synchronous; the worker exists so
// feedback accumulated between requests still feeds the learning loop on a
// schedule, without a client having to call POST /learning/{platform}/run.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voicemirror/go-voice-backend/internal/domain"
)

// Task type names. The type string doubles as the queue-side identifier, so
// renaming one is a breaking change for in-flight tasks.
const (
	// TaskLearningPass recomputes learning metrics for one user×platform.
	TaskLearningPass = "learning:pass"
	// TaskLearningSweep fans out a TaskLearningPass for every user×platform
	// pair with unprocessed feedback. Scheduled periodically.
	TaskLearningSweep = "learning:sweep"
	// TaskProfileResynthesis rebuilds the voice profile for one
	// user×platform outside the threshold-driven path.
	TaskProfileResynthesis = "profile:resynthesize"
)

// TargetPayload addresses one user×platform pair. It is the payload for both
// TaskLearningPass and TaskProfileResynthesis.
type TargetPayload struct {
	UserID   string          `json:"user_id"`
	Platform domain.Platform `json:"platform"`
}

// Client enqueues tasks for the worker to process.
type Client struct {
	inner *asynq.Client
}

// NewClient connects a task client to the Redis instance at addr.
func NewClient(addr string) *Client {
	return &Client{inner: asynq.NewClient(asynq.RedisClientOpt{Addr: addr})}
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.inner.Close()
}

// EnqueueLearningPass queues one learning pass for userID on platform.
// Uniqueness over a short window collapses duplicate enqueues from
// overlapping sweeps.
func (c *Client) EnqueueLearningPass(ctx context.Context, userID string, platform domain.Platform) error {
	return c.enqueueTarget(ctx, TaskLearningPass, userID, platform)
}

// EnqueueProfileResynthesis queues a profile rebuild for userID on platform.
func (c *Client) EnqueueProfileResynthesis(ctx context.Context, userID string, platform domain.Platform) error {
	return c.enqueueTarget(ctx, TaskProfileResynthesis, userID, platform)
}

func (c *Client) enqueueTarget(ctx context.Context, taskType, userID string, platform domain.Platform) error {
	payload, err := json.Marshal(TargetPayload{UserID: userID, Platform: platform})
	if err != nil {
		return err
	}
	task := asynq.NewTask(
		taskType,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Minute),
	)
	_, err = c.inner.EnqueueContext(ctx, task)
	return err
}
