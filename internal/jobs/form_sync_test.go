package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riverqueue/river"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/pkg/worker"
	"formbuilder.io/formbuilder/internal/repository/formstore"
	"formbuilder.io/formbuilder/internal/testutil"
)

func TestFormSyncArgsKind(t *testing.T) {
	t.Parallel()

	if got := (FormSyncArgs{}).Kind(); got != "form_sync" {
		t.Fatalf("Kind() = %q, want %q", got, "form_sync")
	}
}

func TestFormSyncArgsInsertOpts(t *testing.T) {
	t.Parallel()

	opts := (FormSyncArgs{}).InsertOpts()
	if opts.Queue != river.QueueDefault {
		t.Fatalf("Queue = %q, want %q", opts.Queue, river.QueueDefault)
	}
	if opts.MaxAttempts != 1 {
		t.Fatalf("MaxAttempts = %d, want 1", opts.MaxAttempts)
	}
	if opts.UniqueOpts.ByPeriod != time.Minute {
		t.Fatalf("UniqueOpts.ByPeriod = %s, want %s", opts.UniqueOpts.ByPeriod, time.Minute)
	}
}

func TestNewFormSyncWorkerBatchSize(t *testing.T) {
	t.Parallel()

	if w := NewFormSyncWorker(nil, nil, nil, 0); w.batchSize != DefaultSyncBatchSize {
		t.Fatalf("batchSize = %d, want %d", w.batchSize, DefaultSyncBatchSize)
	}
	if w := NewFormSyncWorker(nil, nil, nil, 5); w.batchSize != 5 {
		t.Fatalf("batchSize = %d, want 5", w.batchSize)
	}
}

func TestFormSyncWorkerWork_Uninitialized(t *testing.T) {
	t.Parallel()

	var w *FormSyncWorker
	err := w.Work(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
	}
}

func TestPeriodicJobs(t *testing.T) {
	t.Parallel()

	if got := len(PeriodicJobs(0)); got != 1 {
		t.Fatalf("len(PeriodicJobs) = %d, want 1", got)
	}
}

func TestFormSyncWorkerRun(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemBackend()
	store := formstore.New(mem)

	pools, err := worker.NewPools(ctx, worker.PoolConfig{GeneralPoolSize: 2, SyncPoolSize: 2})
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	t.Cleanup(pools.Shutdown)

	synced, err := store.Create(ctx, domain.FormAttributes{Code: "ok", Name: "Ok"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	down := errors.New("support table unavailable")
	mem.Fail(testutil.OpUpsertSupport, down)
	stale, err := store.Create(ctx, domain.FormAttributes{Code: "stale", Name: "Stale", Status: domain.StatusPublished, Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	mem.ClearFailures()

	doomed, err := store.Create(ctx, domain.FormAttributes{Code: "doomed", Name: "Doomed"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	mem.Fail(testutil.OpDeactivateSupport, down)
	if out, err := store.Delete(ctx, doomed.ID); err != nil || !out.SoftDeleted {
		t.Fatalf("Delete() = %+v, %v, want soft delete", out, err)
	}
	mem.ClearFailures()

	w := NewFormSyncWorker(store, pools.Sync, nil, 10)
	summary, err := w.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary != (SyncSummary{Scanned: 2, Repaired: 2}) {
		t.Fatalf("summary = %+v, want 2 scanned and repaired", summary)
	}

	got, err := store.Get(ctx, stale.ID)
	if err != nil || !got.IsSync {
		t.Fatalf("stale form after sync = %+v, %v, want synced", got, err)
	}
	rec, err := mem.GetSupport(ctx, stale.ID)
	if err != nil || !rec.Active {
		t.Fatalf("support record = %+v, %v, want active", rec, err)
	}
	if _, err := store.Get(ctx, doomed.ID); err == nil {
		t.Fatal("soft-deleted form still exists after sync")
	}
	if _, err := store.Get(ctx, synced.ID); err != nil {
		t.Fatalf("synced form lost: %v", err)
	}

	summary, err = w.Run(ctx)
	if err != nil || summary.Scanned != 0 {
		t.Fatalf("second Run() = %+v, %v, want nothing to do", summary, err)
	}
}

func TestFormSyncWorkerRun_CountsFailures(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemBackend()
	store := formstore.New(mem)

	pools, err := worker.NewPools(ctx, worker.DefaultPoolConfig())
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	t.Cleanup(pools.Shutdown)

	mem.Fail(testutil.OpUpsertSupport, errors.New("down"))
	if _, err := store.Create(ctx, domain.FormAttributes{Code: "a", Name: "A"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	summary, err := NewFormSyncWorker(store, pools.Sync, nil, 10).Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary != (SyncSummary{Scanned: 1, Failed: 1}) {
		t.Fatalf("summary = %+v, want one failure", summary)
	}
}
