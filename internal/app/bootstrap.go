// Package app is the composition root: it builds the modules, the router and
// the background services. Bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"formbuilder.io/formbuilder/internal/api/handlers"
	"formbuilder.io/formbuilder/internal/app/modules"
	"formbuilder.io/formbuilder/internal/config"
	"formbuilder.io/formbuilder/internal/infrastructure"
	"formbuilder.io/formbuilder/internal/pkg/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *infrastructure.DatabaseClients
	Pools   *worker.Pools
	Forms   *modules.FormsModule
	Modules []modules.Module
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	forms := modules.NewFormsModule(infra)
	allModules := []modules.Module{
		forms,
		modules.NewGovernanceModule(infra),
	}

	workers := river.NewWorkers()
	var periodic []*river.PeriodicJob
	for _, mod := range allModules {
		mod.RegisterWorkers(workers)
		periodic = append(periodic, mod.PeriodicJobs()...)
	}
	if err := infra.InitRiver(workers, periodic); err != nil {
		infra.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}

	server := handlers.NewServer(modules.NewServerDeps(infra, allModules))

	return &Application{
		Config:  cfg,
		Router:  newRouter(cfg, server, modules.NewJWTConfig(cfg), infra.Registry),
		DB:      infra.DB,
		Pools:   infra.Pools,
		Forms:   forms,
		Modules: allModules,
	}, nil
}
