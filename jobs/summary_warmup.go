package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SummaryWarmer precomputes per-tenant dashboard summaries.
type SummaryWarmer interface {
	WarmSummaries(ctx context.Context) error
}

// NewSummaryWarmupTask constructs the warmup task.
func NewSummaryWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskSummaryWarmup, nil)
}

// NewSummaryWarmupHandler returns the handler registration for the warmup.
func NewSummaryWarmupHandler(logger *slog.Logger, warmer SummaryWarmer) TaskHandler {
	return TaskHandler{
		Type: TaskSummaryWarmup,
		Handler: func(ctx context.Context, t *asynq.Task) error {
			if err := warmer.WarmSummaries(ctx); err != nil {
				logger.Error("summary warmup failed", slog.Any("error", err))
				return err
			}
			return nil
		},
	}
}
