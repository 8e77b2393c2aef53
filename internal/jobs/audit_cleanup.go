package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/pkg/logger"
)

// DefaultAuditRetention is how long audit rows are kept when no retention
// is configured.
const DefaultAuditRetention = 90 * 24 * time.Hour

// AuditPruner deletes audit rows created before cutoff. *sqlc.Queries
// implements it.
type AuditPruner interface {
	DeleteAuditLogBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditCleanupArgs is a periodic maintenance job that removes expired
// rows from form_audit_log.
type AuditCleanupArgs struct{}

func (AuditCleanupArgs) Kind() string { return "audit_cleanup" }

// InsertOpts ensures at most one cleanup job is enqueued within the same day.
func (AuditCleanupArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// AuditCleanupWorker deletes audit rows older than the retention.
type AuditCleanupWorker struct {
	river.WorkerDefaults[AuditCleanupArgs]
	pruner    AuditPruner
	retention time.Duration
	now       func() time.Time
}

// NewAuditCleanupWorker creates a cleanup worker. Non-positive retention
// falls back to DefaultAuditRetention.
func NewAuditCleanupWorker(pruner AuditPruner, retention time.Duration) *AuditCleanupWorker {
	if retention <= 0 {
		retention = DefaultAuditRetention
	}
	return &AuditCleanupWorker{
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
	}
}

func (w *AuditCleanupWorker) Work(ctx context.Context, _ *river.Job[AuditCleanupArgs]) error {
	if w == nil || w.pruner == nil {
		return fmt.Errorf("audit cleanup worker is not initialized")
	}

	cutoff := w.now().UTC().Add(-w.retention)
	deleted, err := w.pruner.DeleteAuditLogBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete audit rows before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	logger.Info("audit cleanup completed",
		zap.Int64("deleted_rows", deleted),
		zap.String("cutoff", cutoff.Format(time.RFC3339)),
		zap.Duration("retention", w.retention),
	)
	return nil
}

// AuditCleanupJobs schedules the cleanup once a day.
func AuditCleanupJobs() []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(24*time.Hour),
			func() (river.JobArgs, *river.InsertOpts) {
				return AuditCleanupArgs{}, nil
			},
			nil,
		),
	}
}
