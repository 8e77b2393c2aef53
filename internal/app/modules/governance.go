package modules

import (
	"context"

	"github.com/riverqueue/river"

	"formbuilder.io/formbuilder/internal/api/handlers"
	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/governance/audit"
	"formbuilder.io/formbuilder/internal/jobs"
	"formbuilder.io/formbuilder/internal/repository/sqlc"
)

// GovernanceModule records every form event in the audit log and prunes
// rows past the retention.
type GovernanceModule struct {
	audit   *audit.Logger
	cleanup *jobs.AuditCleanupWorker
}

func NewGovernanceModule(infra *Infrastructure) *GovernanceModule {
	queries := sqlc.New(infra.Pool)
	logger := audit.NewLogger(queries)
	infra.Dispatcher.Register(logger.HandleEvent, domain.AllFormEvents...)
	return &GovernanceModule{
		audit:   logger,
		cleanup: jobs.NewAuditCleanupWorker(queries, infra.Config.Forms.AuditRetention),
	}
}

func (m *GovernanceModule) Name() string { return "governance" }

func (m *GovernanceModule) ContributeServerDeps(_ *handlers.ServerDeps) {}

func (m *GovernanceModule) RegisterWorkers(workers *river.Workers) {
	if workers == nil || m == nil {
		return
	}
	river.AddWorker(workers, m.cleanup)
}

func (m *GovernanceModule) PeriodicJobs() []*river.PeriodicJob {
	return jobs.AuditCleanupJobs()
}

func (m *GovernanceModule) Shutdown(context.Context) error { return nil }
