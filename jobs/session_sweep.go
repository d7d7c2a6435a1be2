package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Ezrah1/orlando/internal/jobs"
)

// SessionSweeper marks idle sessions terminal in bulk. Request handling
// already expires sessions lazily; the sweep keeps the table bounded and
// closes sessions whose owners simply walked away.
type SessionSweeper interface {
	DeactivateIdleSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionSweepJob wraps the sweep for Asynq.
type SessionSweepJob struct {
	sweeper SessionSweeper
	timeout time.Duration
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewSessionSweepJob constructs the job.
func NewSessionSweepJob(sweeper SessionSweeper, timeout time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = jobmetrics.NewMetrics(nil)
	}
	return &SessionSweepJob{sweeper: sweeper, timeout: timeout, logger: logger, metrics: metrics}
}

// NewTask builds the Asynq task for scheduling.
func (j *SessionSweepJob) NewTask() *asynq.Task {
	return asynq.NewTask(TaskSessionSweep, nil)
}

// Handle processes TaskSessionSweep tasks.
func (j *SessionSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskSessionSweep)
	cutoff := time.Now().UTC().Add(-j.timeout)
	swept, err := j.sweeper.DeactivateIdleSessions(ctx, cutoff)
	if err != nil {
		j.logger.Error("session sweep", slog.Any("error", err))
		return tracker.End(err)
	}
	if swept > 0 {
		j.logger.Info("session sweep", slog.Int64("deactivated", swept))
		j.metrics.AddSwept(TaskSessionSweep, swept)
	}
	return tracker.End(nil)
}
