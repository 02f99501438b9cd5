package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// OverdueScanner transitions unpaid final invoices past their due date.
type OverdueScanner interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

// NewOverdueScanTask constructs the scan task. The scan is idempotent, so the
// task carries no payload.
func NewOverdueScanTask() *asynq.Task {
	return asynq.NewTask(TaskOverdueScan, nil)
}

// NewOverdueScanHandler returns the handler registration for the scan.
func NewOverdueScanHandler(logger *slog.Logger, scanner OverdueScanner) TaskHandler {
	return TaskHandler{
		Type: TaskOverdueScan,
		Handler: func(ctx context.Context, t *asynq.Task) error {
			n, err := scanner.MarkOverdue(ctx)
			if err != nil {
				logger.Error("overdue scan failed", slog.Any("error", err))
				return err
			}
			if n > 0 {
				logger.Info("overdue scan complete", slog.Int64("transitioned", n))
			}
			return nil
		},
	}
}
