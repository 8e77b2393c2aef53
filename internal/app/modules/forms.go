package modules

import (
	"context"

	"github.com/riverqueue/river"

	"formbuilder.io/formbuilder/internal/api/handlers"
	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/fieldtype"
	"formbuilder.io/formbuilder/internal/jobs"
	"formbuilder.io/formbuilder/internal/repository/formstore"
	"formbuilder.io/formbuilder/internal/service"
	"formbuilder.io/formbuilder/internal/validator"
)

// FormsModule wires the form lifecycle, submissions and the sync job.
type FormsModule struct {
	infra       *Infrastructure
	store       *formstore.Store
	forms       *service.FormService
	submissions *service.SubmissionService
	syncWorker  *jobs.FormSyncWorker
}

func NewFormsModule(infra *Infrastructure) *FormsModule {
	cfg := infra.Config.Forms
	store := formstore.New(infra.Store, formstore.WithMetrics(infra.Metrics))
	handler := service.NewModificationHandler(store, service.NewFormCopier(store, infra.Store),
		service.WithRowLocking(cfg.RowLocking),
		service.WithHandlerMetrics(infra.Metrics),
	)
	types, validators := fieldtype.NewRegistry(), validator.NewRegistry()

	submissions := service.NewSubmissionService(store, infra.Store, infra.Store, types, validators,
		service.WithDefinitionCache(cfg.DefinitionCacheSize, cfg.DefinitionCacheTTL),
		service.WithSubmissionMetrics(infra.Metrics),
	)
	infra.Dispatcher.Register(submissions.InvalidateOnEvent,
		domain.EventFormUpdated,
		domain.EventFormPublished,
		domain.EventFormArchived,
		domain.EventFormDeleted,
	)

	return &FormsModule{
		infra:       infra,
		store:       store,
		forms:       service.NewFormService(store, infra.Store, handler, types, validators, infra.Events),
		submissions: submissions,
		syncWorker:  jobs.NewFormSyncWorker(store, infra.Pools.Sync, infra.Metrics, cfg.SyncBatchSize),
	}
}

func (m *FormsModule) Name() string { return "forms" }

func (m *FormsModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Forms = m.forms
	deps.Submissions = m.submissions
}

func (m *FormsModule) RegisterWorkers(workers *river.Workers) {
	if workers == nil || m == nil {
		return
	}
	river.AddWorker(workers, m.syncWorker)
}

func (m *FormsModule) PeriodicJobs() []*river.PeriodicJob {
	return jobs.PeriodicJobs(m.infra.Config.Forms.SyncInterval)
}

// SyncWorker is exposed for the CLI, which runs one pass without River.
func (m *FormsModule) SyncWorker() *jobs.FormSyncWorker { return m.syncWorker }

func (m *FormsModule) Forms() *service.FormService { return m.forms }

func (m *FormsModule) Shutdown(context.Context) error { return nil }
