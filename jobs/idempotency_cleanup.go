package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// IdempotencyCleaner prunes processed keys older than the retention window.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupPayload carries the retention window for a cleanup run.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// NewIdempotencyCleanupHandler returns the handler registration for cleanup.
func NewIdempotencyCleanupHandler(logger *slog.Logger, cleaner IdempotencyCleaner) TaskHandler {
	return TaskHandler{
		Type: TaskIdempotencyCleanup,
		Handler: func(ctx context.Context, t *asynq.Task) error {
			var payload IdempotencyCleanupPayload
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
			if payload.Retention <= 0 {
				payload.Retention = 7 * 24 * time.Hour
			}
			if err := cleaner.Cleanup(ctx, payload.Retention); err != nil {
				logger.Error("idempotency cleanup failed", slog.Any("error", err))
				return err
			}
			return nil
		},
	}
}
