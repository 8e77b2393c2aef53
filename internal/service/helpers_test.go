package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/fieldtype"
	"formbuilder.io/formbuilder/internal/repository/formstore"
	"formbuilder.io/formbuilder/internal/service"
	"formbuilder.io/formbuilder/internal/testutil"
	"formbuilder.io/formbuilder/internal/validator"
)

var (
	created = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	now     = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

type recorder struct {
	mu     sync.Mutex
	events []*domain.DomainEvent
}

func (r *recorder) Publish(_ context.Context, events ...*domain.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type env struct {
	mem     *testutil.MemBackend
	store   *formstore.Store
	handler *service.ModificationHandler
	forms   *service.FormService
	events  *recorder
}

func newEnv(t *testing.T, opts ...service.HandlerOption) *env {
	t.Helper()
	clock := func() time.Time { return now }

	mem := testutil.NewMemBackend()
	store := formstore.New(mem, formstore.WithClock(clock))
	copier := service.NewFormCopier(store, mem)
	handler := service.NewModificationHandler(store, copier, append([]service.HandlerOption{service.WithClock(clock)}, opts...)...)
	events := &recorder{}

	return &env{
		mem:     mem,
		store:   store,
		handler: handler,
		forms:   service.NewFormService(store, mem, handler, fieldtype.NewRegistry(), validator.NewRegistry(), events),
		events:  events,
	}
}

func (e *env) createForm(t *testing.T, code string, status domain.Status) *domain.Form {
	t.Helper()
	form, err := e.store.Create(context.Background(), domain.FormAttributes{
		Code:       code,
		Name:       "Form " + code,
		Status:     status,
		Active:     true,
		DateCreate: created,
	})
	require.NoError(t, err)
	return form
}

func (e *env) addField(t *testing.T, formID int64, field domain.Field) *domain.Field {
	t.Helper()
	field.FormID = formID
	f, err := e.mem.CreateField(context.Background(), field)
	require.NoError(t, err)
	return f
}

func (e *env) reload(t *testing.T, id int64) *domain.Form {
	t.Helper()
	form, err := e.store.Get(context.Background(), id)
	require.NoError(t, err)
	return form
}

// desired returns the editable attributes of form with changes applied.
func desired(form *domain.Form, change func(a *domain.FormAttributes)) domain.FormAttributes {
	a := form.FormAttributes
	a.PreviousVersions = append(domain.VersionChain(nil), a.PreviousVersions...)
	if change != nil {
		change(&a)
	}
	return a
}
