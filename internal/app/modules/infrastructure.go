package modules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/riverqueue/river"

	"formbuilder.io/formbuilder/internal/config"
	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/infrastructure"
	"formbuilder.io/formbuilder/internal/metrics"
	"formbuilder.io/formbuilder/internal/pkg/worker"
	"formbuilder.io/formbuilder/internal/repository/pgstore"
	"formbuilder.io/formbuilder/internal/service"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	DB          *infrastructure.DatabaseClients
	Pools       *worker.Pools
	Pool        *pgxpool.Pool
	RiverClient *river.Client[pgx.Tx]
	Store       *pgstore.Store
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Dispatcher  *domain.EventDispatcher
	Events      service.EventPublisher
}

// NewInfrastructure initializes DB/pools and shared services.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		SyncPoolSize:    cfg.Worker.SyncPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	dispatcher := domain.NewEventDispatcher()
	return &Infrastructure{
		Config:     cfg,
		DB:         db,
		Pools:      pools,
		Pool:       db.Pool,
		Store:      pgstore.New(db.Pool),
		Registry:   registry,
		Metrics:    m,
		Dispatcher: dispatcher,
		Events:     NewAsyncPublisher(dispatcher, pools),
	}, nil
}

// InitRiver initializes River client on top of a prepared worker registry.
func (i *Infrastructure) InitRiver(workers *river.Workers, periodic []*river.PeriodicJob) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, periodic, i.Config.River); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	i.RiverClient = i.DB.RiverClient
	return nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
