// Package jobs contains background task definitions and the Asynq worker
// runtime: the nightly overdue scan, dashboard summary warmup and
// idempotency-key cleanup.
package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueScan flips unpaid final invoices past their due date.
	TaskOverdueScan = "invoices:overdue_scan"
	// TaskSummaryWarmup precomputes per-tenant dashboard summaries.
	TaskSummaryWarmup = "invoices:summary_warmup"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "shared:idempotency_cleanup"
)
