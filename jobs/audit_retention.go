package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Ezrah1/orlando/internal/jobs"
)

// AuditPruner deletes audit entries older than a cutoff.
type AuditPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRetentionJob prunes the audit trail outside the retention window.
// This is the only path that ever deletes audit rows.
type AuditRetentionJob struct {
	pruner    AuditPruner
	retention time.Duration
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

// NewAuditRetentionJob constructs the job.
func NewAuditRetentionJob(pruner AuditPruner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditRetentionJob {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = jobmetrics.NewMetrics(nil)
	}
	return &AuditRetentionJob{pruner: pruner, retention: retention, logger: logger, metrics: metrics}
}

// NewTask builds the Asynq task for scheduling.
func (j *AuditRetentionJob) NewTask() *asynq.Task {
	return asynq.NewTask(TaskAuditRetention, nil)
}

// Handle processes TaskAuditRetention tasks.
func (j *AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j.retention <= 0 {
		return nil
	}
	tracker := j.metrics.Track(TaskAuditRetention)
	cutoff := time.Now().UTC().Add(-j.retention)
	pruned, err := j.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("audit retention", slog.Any("error", err))
		return tracker.End(err)
	}
	if pruned > 0 {
		j.logger.Info("audit retention", slog.Int64("pruned", pruned))
		j.metrics.AddSwept(TaskAuditRetention, pruned)
	}
	return tracker.End(nil)
}
