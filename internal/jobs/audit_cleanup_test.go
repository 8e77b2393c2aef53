package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riverqueue/river"
)

type fakePruner struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (p *fakePruner) DeleteAuditLogBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.deleted, p.err
}

func TestAuditCleanupArgsKind(t *testing.T) {
	t.Parallel()

	if got := (AuditCleanupArgs{}).Kind(); got != "audit_cleanup" {
		t.Fatalf("Kind() = %q, want %q", got, "audit_cleanup")
	}
}

func TestAuditCleanupArgsInsertOpts(t *testing.T) {
	t.Parallel()

	opts := (AuditCleanupArgs{}).InsertOpts()
	if opts.Queue != river.QueueDefault {
		t.Fatalf("Queue = %q, want %q", opts.Queue, river.QueueDefault)
	}
	if opts.MaxAttempts != 1 {
		t.Fatalf("MaxAttempts = %d, want 1", opts.MaxAttempts)
	}
	if opts.UniqueOpts.ByPeriod != 24*time.Hour {
		t.Fatalf("UniqueOpts.ByPeriod = %s, want %s", opts.UniqueOpts.ByPeriod, 24*time.Hour)
	}
}

func TestNewAuditCleanupWorkerRetention(t *testing.T) {
	t.Parallel()

	t.Run("defaults to ninety days when non-positive", func(t *testing.T) {
		w := NewAuditCleanupWorker(nil, 0)
		if w.retention != DefaultAuditRetention {
			t.Fatalf("retention = %s, want %s", w.retention, DefaultAuditRetention)
		}
	})

	t.Run("uses explicit retention when provided", func(t *testing.T) {
		want := 7 * 24 * time.Hour
		w := NewAuditCleanupWorker(nil, want)
		if w.retention != want {
			t.Fatalf("retention = %s, want %s", w.retention, want)
		}
	})
}

func TestAuditCleanupWorkerWork(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("deletes rows before the cutoff", func(t *testing.T) {
		p := &fakePruner{deleted: 4}
		w := NewAuditCleanupWorker(p, 24*time.Hour)
		w.now = func() time.Time { return now }

		if err := w.Work(context.Background(), nil); err != nil {
			t.Fatalf("Work() error = %v", err)
		}
		if want := now.Add(-24 * time.Hour); !p.cutoff.Equal(want) {
			t.Fatalf("cutoff = %s, want %s", p.cutoff, want)
		}
	})

	t.Run("wraps store errors", func(t *testing.T) {
		w := NewAuditCleanupWorker(&fakePruner{err: errors.New("conn reset")}, time.Hour)
		err := w.Work(context.Background(), nil)
		if err == nil || !strings.Contains(err.Error(), "conn reset") {
			t.Fatalf("Work() error = %v, want contains %q", err, "conn reset")
		}
	})

	t.Run("nil pruner", func(t *testing.T) {
		err := (&AuditCleanupWorker{}).Work(context.Background(), nil)
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
		}
	})

	t.Run("nil receiver", func(t *testing.T) {
		var w *AuditCleanupWorker
		if err := w.Work(context.Background(), nil); err == nil {
			t.Fatal("Work() error = nil, want error")
		}
	})
}
