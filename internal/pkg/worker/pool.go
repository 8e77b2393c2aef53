// Package worker provides goroutine pool management.
//
// Background work never starts naked goroutines: it goes through one of the
// pools below, with context propagation and panic recovery.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/pkg/logger"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

const (
	PoolGeneral = "general"
	PoolSync    = "sync"
)

// Task is a context-aware task function.
type Task func(ctx context.Context)

// Pool wraps ants.Pool with context-aware submission.
type Pool struct {
	pool *ants.Pool
	name string

	// inflight counts submitted tasks that have not returned yet.
	inflight atomic.Int64
}

// Pools is the worker pool collection.
//
// General runs post-commit event delivery. Sync runs the support record
// repair fan-out and is kept small so the job cannot exhaust the DB pool.
type Pools struct {
	General *Pool
	Sync    *Pool

	// serviceCtx is the service lifecycle context for detached tasks
	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// PoolConfig contains worker pool configuration.
type PoolConfig struct {
	GeneralPoolSize int
	SyncPoolSize    int
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		GeneralPoolSize: 50,
		SyncPoolSize:    8,
	}
}

// NewPools creates the worker pool collection.
func NewPools(ctx context.Context, cfg PoolConfig) (*Pools, error) {
	serviceCtx, serviceCancel := context.WithCancel(ctx)

	panicHandler := func(p interface{}) {
		logger.Error("worker panic recovered",
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	generalAnts, err := ants.NewPool(cfg.GeneralPoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		serviceCancel()
		return nil, err
	}

	syncAnts, err := ants.NewPool(cfg.SyncPoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(time.Minute),
	)
	if err != nil {
		generalAnts.Release()
		serviceCancel()
		return nil, err
	}

	return &Pools{
		General:       &Pool{pool: generalAnts, name: PoolGeneral},
		Sync:          &Pool{pool: syncAnts, name: PoolSync},
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}, nil
}

func (p *Pool) Name() string { return p.name }

// submit hands fn to ants and tracks it until it returns.
func (p *Pool) submit(fn func()) error {
	p.inflight.Add(1)
	err := p.pool.Submit(func() {
		defer p.inflight.Add(-1)
		fn()
	})
	if err != nil {
		p.inflight.Add(-1)
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
	}
	return err
}

// Submit submits a context-aware task. If ctx is already cancelled it
// returns ctx.Err() without submitting; a task whose ctx is cancelled while
// queued is skipped.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return p.submit(func() {
		select {
		case <-ctx.Done():
			logger.Debug("task skipped: context cancelled",
				zap.String("pool", p.name),
				zap.Error(ctx.Err()),
			)
			return
		default:
		}
		task(ctx)
	})
}

// Each runs fn for every item on the pool and waits for all of them. The
// returned slice holds the error of each item at the same index. Items that
// could not be submitted carry the submission error; items skipped because
// ctx was cancelled carry ctx.Err().
func Each[T any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) error) []error {
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		err := p.submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = fn(ctx, item)
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()
	return errs
}

// SubmitDetached submits a task bound to the service lifecycle instead of a
// request context. It survives request cancellation but stops on Shutdown.
func (p *Pools) SubmitDetached(poolName string, task Task) error {
	pool := p.General
	if poolName == PoolSync {
		pool = p.Sync
	}

	return pool.submit(func() {
		select {
		case <-p.serviceCtx.Done():
			logger.Debug("detached task skipped: service shutting down",
				zap.String("pool", poolName),
			)
			return
		default:
		}
		task(p.serviceCtx)
	})
}

// Drain waits until no task is running or queued on either pool, or until
// ctx is done. New submissions are still accepted while draining.
func (p *Pools) Drain(ctx context.Context) error {
	const pollInterval = 10 * time.Millisecond
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for !p.idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (p *Pools) idle() bool {
	for _, pool := range []*Pool{p.General, p.Sync} {
		if pool.inflight.Load() > 0 {
			return false
		}
	}
	return true
}

// Shutdown cancels detached tasks and waits for running ones (max 30s).
func (p *Pools) Shutdown() {
	p.serviceCancel()

	const shutdownTimeout = 30 * time.Second
	if err := p.General.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("general pool shutdown timeout", zap.Error(err))
	}
	if err := p.Sync.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("sync pool shutdown timeout", zap.Error(err))
	}
}

// Stats returns running/free/cap per pool.
func (p *Pools) Stats() map[string]map[string]int {
	stats := func(pool *Pool) map[string]int {
		return map[string]int{
			"running": pool.pool.Running(),
			"free":    pool.pool.Free(),
			"cap":     pool.pool.Cap(),
			"pending": int(pool.inflight.Load()),
		}
	}
	return map[string]map[string]int{
		PoolGeneral: stats(p.General),
		PoolSync:    stats(p.Sync),
	}
}
