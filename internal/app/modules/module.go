// Package modules contains the dependency modules of the composition root.
// Each module owns one area of the service and contributes its handlers,
// workers and event subscriptions.
package modules

import (
	"context"

	"github.com/riverqueue/river"

	"formbuilder.io/formbuilder/internal/api/handlers"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging/debugging.
	Name() string

	// ContributeServerDeps injects module-owned dependencies into the HTTP server deps.
	ContributeServerDeps(*handlers.ServerDeps)

	// RegisterWorkers registers module workers into a shared River worker registry.
	RegisterWorkers(*river.Workers)

	// PeriodicJobs lists the jobs River schedules for the module.
	PeriodicJobs() []*river.PeriodicJob

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}
