package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formbuilder.io/formbuilder/internal/api/handlers"
	"formbuilder.io/formbuilder/internal/app/modules"
	"formbuilder.io/formbuilder/internal/pkg/worker"
)

// recordingModule notes whether the pools still took work when it was shut down.
type recordingModule struct {
	pools        *worker.Pools
	poolsOpen    bool
	shutdownErr  error
	shutdownCall int
}

func (m *recordingModule) Name() string                              { return "recording" }
func (m *recordingModule) ContributeServerDeps(*handlers.ServerDeps) {}
func (m *recordingModule) RegisterWorkers(*river.Workers)            {}
func (m *recordingModule) PeriodicJobs() []*river.PeriodicJob        { return nil }

func (m *recordingModule) Shutdown(context.Context) error {
	m.shutdownCall++
	m.poolsOpen = m.pools.SubmitDetached(worker.PoolGeneral, func(context.Context) {}) == nil
	return m.shutdownErr
}

func TestApplicationShutdown_Order(t *testing.T) {
	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 1, SyncPoolSize: 1})
	require.NoError(t, err)

	var audited atomic.Int32
	for range 3 {
		require.NoError(t, pools.SubmitDetached(worker.PoolGeneral, func(context.Context) {
			time.Sleep(5 * time.Millisecond)
			audited.Add(1)
		}))
	}

	mod := &recordingModule{pools: pools, shutdownErr: errors.New("flush failed")}
	application := &Application{Pools: pools, Modules: []modules.Module{nil, mod}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	application.Shutdown(ctx)

	assert.Equal(t, 1, mod.shutdownCall)
	assert.True(t, mod.poolsOpen, "modules shut down before the pools")
	assert.Equal(t, int32(3), audited.Load(), "queued events are delivered")
	assert.ErrorIs(t, pools.SubmitDetached(worker.PoolGeneral, func(context.Context) {}), worker.ErrPoolClosed)
}
