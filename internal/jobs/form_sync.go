// Package jobs defines River Queue job types for background processing.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/metrics"
	"formbuilder.io/formbuilder/internal/pkg/logger"
	"formbuilder.io/formbuilder/internal/pkg/worker"
	"formbuilder.io/formbuilder/internal/repository/formstore"
)

const (
	DefaultSyncInterval  = time.Hour
	DefaultSyncBatchSize = 100
)

var errStillSoftDeleted = errors.New("support record still not deactivated")

// FormSyncArgs is the periodic job that repairs forms whose support record
// is out of date.
type FormSyncArgs struct{}

func (FormSyncArgs) Kind() string { return "form_sync" }

// InsertOpts keeps a single sync job per minute; overlapping runs would
// only repeat each other's work.
func (FormSyncArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Minute,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// SyncSummary counts the outcome of one run.
type SyncSummary struct {
	Scanned  int
	Repaired int
	Failed   int
}

// FormSyncWorker finds unsynced forms and repairs them: soft-deleted forms
// are deleted again, the others get their support record rewritten.
type FormSyncWorker struct {
	river.WorkerDefaults[FormSyncArgs]
	forms     *formstore.Store
	pool      *worker.Pool
	metrics   *metrics.Metrics
	batchSize int
}

// NewFormSyncWorker creates a sync worker. Non-positive batch sizes fall
// back to DefaultSyncBatchSize.
func NewFormSyncWorker(forms *formstore.Store, pool *worker.Pool, m *metrics.Metrics, batchSize int) *FormSyncWorker {
	if batchSize <= 0 {
		batchSize = DefaultSyncBatchSize
	}
	return &FormSyncWorker{
		forms:     forms,
		pool:      pool,
		metrics:   m,
		batchSize: batchSize,
	}
}

func (w *FormSyncWorker) Work(ctx context.Context, _ *river.Job[FormSyncArgs]) error {
	if w == nil || w.forms == nil || w.pool == nil {
		return fmt.Errorf("form sync worker is not initialized")
	}
	_, err := w.Run(ctx)
	return err
}

// Run repairs one batch of unsynced forms. Per-form failures are counted
// and logged, not returned; the next run retries them.
func (w *FormSyncWorker) Run(ctx context.Context) (SyncSummary, error) {
	var summary SyncSummary

	forms, err := w.forms.ListUnsynced(ctx, w.batchSize)
	if err != nil {
		return summary, fmt.Errorf("list unsynced forms: %w", err)
	}
	summary.Scanned = len(forms)
	if len(forms) == 0 {
		return summary, nil
	}

	ctx = domain.WithActor(ctx, domain.SystemActor)
	errs := worker.Each(ctx, w.pool, forms, w.repair)
	for i, err := range errs {
		if err == nil {
			summary.Repaired++
			w.metrics.SyncRepair("repaired")
			w.metrics.PoolTask(w.pool.Name(), "ok")
			continue
		}
		summary.Failed++
		w.metrics.SyncRepair("failed")
		w.metrics.PoolTask(w.pool.Name(), "error")
		logger.Warn("form sync repair failed",
			zap.Int64("form_id", forms[i].ID),
			zap.Bool("is_deleted", forms[i].IsDeleted),
			zap.Error(err),
		)
	}

	logger.Info("form sync completed",
		zap.Int("scanned", summary.Scanned),
		zap.Int("repaired", summary.Repaired),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (w *FormSyncWorker) repair(ctx context.Context, form domain.Form) error {
	if form.IsDeleted {
		out, err := w.forms.Delete(ctx, form.ID)
		if err != nil {
			return err
		}
		if out.SoftDeleted {
			return errStillSoftDeleted
		}
		return nil
	}
	_, err := w.forms.Resync(ctx, form.ID)
	return err
}

// PeriodicJobs returns the schedule of the sync job. It also runs once at
// startup.
func PeriodicJobs(interval time.Duration) []*river.PeriodicJob {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return FormSyncArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
