package testutil

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"formbuilder.io/formbuilder/internal/domain"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
)

// Operation names accepted by MemBackend.Fail.
const (
	OpInsertForm        = "InsertForm"
	OpUpdateForm        = "UpdateForm"
	OpDeleteForm        = "DeleteForm"
	OpUpsertSupport     = "UpsertSupport"
	OpDeactivateSupport = "DeactivateSupport"
	OpCopyField         = "CopyField"
	OpInsertResult      = "InsertResult"
)

type memState struct {
	forms   map[int64]domain.Form
	support map[int64]domain.SupportRecord
	fields  map[int64]domain.Field
	results map[int64]domain.Result
	nextID  int64
}

func (s memState) clone() memState {
	return memState{
		forms:   maps.Clone(s.forms),
		support: maps.Clone(s.support),
		fields:  maps.Clone(s.fields),
		results: maps.Clone(s.results),
		nextID:  s.nextID,
	}
}

type failure struct {
	match func(id int64) bool
	err   error
}

type memTxKey struct{}

// MemBackend is an in-memory form backend with the same transaction
// semantics as the PostgreSQL one: InTx snapshots the state and restores it
// when fn fails, nested calls behave as savepoints, and the outermost call
// serializes with other transactions.
//
// Stored values are never mutated in place, so a snapshot only copies maps.
type MemBackend struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   memState

	failures    map[string]failure
	lockedReads int
}

func NewMemBackend() *MemBackend {
	return &MemBackend{
		st: memState{
			forms:   map[int64]domain.Form{},
			support: map[int64]domain.SupportRecord{},
			fields:  map[int64]domain.Field{},
			results: map[int64]domain.Result{},
		},
		failures: map[string]failure{},
	}
}

// Fail makes every later call of op return err.
func (m *MemBackend) Fail(op string, err error) {
	m.FailFor(op, nil, err)
}

// FailFor makes op return err when match accepts the id the call is about
// (form id, field id or support form id). A nil match accepts every id.
func (m *MemBackend) FailFor(op string, match func(id int64) bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if match == nil {
		match = func(int64) bool { return true }
	}
	m.failures[op] = failure{match: match, err: err}
}

func (m *MemBackend) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = map[string]failure{}
}

// LockedReads counts GetForm calls made with forUpdate inside a transaction.
func (m *MemBackend) LockedReads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lockedReads
}

func (m *MemBackend) injected(op string, id int64) error {
	if f, ok := m.failures[op]; ok && f.match(id) {
		return fmt.Errorf("%s %d: %w", op, id, f.err)
	}
	return nil
}

func (m *MemBackend) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) == nil {
		m.txMu.Lock()
		defer m.txMu.Unlock()
		ctx = context.WithValue(ctx, memTxKey{}, true)
	}

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemBackend) InsertForm(_ context.Context, attrs domain.FormAttributes) (*domain.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpInsertForm, 0); err != nil {
		return nil, err
	}
	if err := m.checkUnique(0, attrs.Code, attrs.XMLID); err != nil {
		return nil, err
	}
	m.st.nextID++
	f := domain.Form{ID: m.st.nextID, FormAttributes: attrs}
	m.st.forms[f.ID] = f
	return &f, nil
}

func (m *MemBackend) GetForm(ctx context.Context, id int64, forUpdate bool) (*domain.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if forUpdate && ctx.Value(memTxKey{}) != nil {
		m.lockedReads++
	}
	f, ok := m.st.forms[id]
	if !ok {
		return nil, fmt.Errorf("get form %d: %w", id, apperrors.ErrNotFound)
	}
	return &f, nil
}

func (m *MemBackend) UpdateForm(_ context.Context, id int64, patch domain.FormPatch) (*domain.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpUpdateForm, id); err != nil {
		return nil, err
	}
	f, ok := m.st.forms[id]
	if !ok {
		return nil, fmt.Errorf("update form %d: %w", id, apperrors.ErrNotFound)
	}
	f.FormAttributes = patch.ApplyTo(f.FormAttributes)
	if patch.IsSync != nil {
		f.IsSync = *patch.IsSync
	}
	if patch.IsDeleted != nil {
		f.IsDeleted = *patch.IsDeleted
	}
	if err := m.checkUnique(id, f.Code, f.XMLID); err != nil {
		return nil, err
	}
	m.st.forms[id] = f
	return &f, nil
}

// DeleteForm removes the form and cascades to its fields and results.
func (m *MemBackend) DeleteForm(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpDeleteForm, id); err != nil {
		return err
	}
	if _, ok := m.st.forms[id]; !ok {
		return fmt.Errorf("delete form %d: %w", id, apperrors.ErrNotFound)
	}
	delete(m.st.forms, id)
	for fid, f := range m.st.fields {
		if f.FormID == id {
			delete(m.st.fields, fid)
		}
	}
	for rid, r := range m.st.results {
		if r.FormID == id {
			delete(m.st.results, rid)
		}
	}
	return nil
}

func (m *MemBackend) ListForms(_ context.Context, filter domain.FormFilter) ([]domain.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Form
	for _, f := range m.st.forms {
		if filter.Status != nil && f.Status != *filter.Status {
			continue
		}
		if filter.NameContains != "" && !strings.Contains(strings.ToLower(f.Name), strings.ToLower(filter.NameContains)) {
			continue
		}
		if filter.IsSync != nil && f.IsSync != *filter.IsSync {
			continue
		}
		if !filter.IncludeDeleted && f.IsDeleted {
			continue
		}
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b domain.Form) int { return cmp.Compare(b.ID, a.ID) })
	return page(out, filter.Offset, filter.Limit), nil
}

func (m *MemBackend) ListFormsByIDsAndStatus(_ context.Context, ids []int64, status domain.Status) ([]domain.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Form
	for _, id := range ids {
		if f, ok := m.st.forms[id]; ok && f.Status == status {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b domain.Form) int { return cmp.Compare(a.ID, b.ID) })
	return slices.CompactFunc(out, func(a, b domain.Form) bool { return a.ID == b.ID }), nil
}

func (m *MemBackend) ListUnsyncedForms(_ context.Context, limit int) ([]domain.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Form
	for _, f := range m.st.forms {
		if !f.IsSync {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b domain.Form) int { return cmp.Compare(a.ID, b.ID) })
	return page(out, 0, limit), nil
}

func (m *MemBackend) UpsertSupport(_ context.Context, rec domain.SupportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpUpsertSupport, rec.FormID); err != nil {
		return err
	}
	m.st.support[rec.FormID] = rec
	return nil
}

func (m *MemBackend) DeactivateSupport(_ context.Context, formID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpDeactivateSupport, formID); err != nil {
		return err
	}
	if rec, ok := m.st.support[formID]; ok {
		rec.Active = false
		m.st.support[formID] = rec
	}
	return nil
}

func (m *MemBackend) GetSupport(_ context.Context, formID int64) (*domain.SupportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.st.support[formID]
	if !ok {
		return nil, fmt.Errorf("get support record %d: %w", formID, apperrors.ErrNotFound)
	}
	return &rec, nil
}

func (m *MemBackend) ListSupport(_ context.Context) ([]domain.SupportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := slices.Collect(maps.Values(m.st.support))
	slices.SortFunc(out, func(a, b domain.SupportRecord) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return b.DateCreate.Compare(a.DateCreate)
	})
	return out, nil
}

func (m *MemBackend) ListFieldIDs(_ context.Context, formID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for id, f := range m.st.fields {
		if f.FormID == formID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *MemBackend) CopyField(_ context.Context, fieldID int64, overrides domain.FieldOverrides) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpCopyField, fieldID); err != nil {
		return 0, err
	}
	src, ok := m.st.fields[fieldID]
	if !ok {
		return 0, fmt.Errorf("copy field %d: %w", fieldID, apperrors.ErrNotFound)
	}
	if _, ok := m.st.forms[overrides.FormID]; !ok {
		return 0, fmt.Errorf("copy field %d to form %d: %w", fieldID, overrides.FormID, apperrors.ErrNotFound)
	}
	return m.storeField(src, overrides.FormID), nil
}

func (m *MemBackend) CreateField(_ context.Context, field domain.Field) (*domain.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.st.forms[field.FormID]; !ok {
		return nil, fmt.Errorf("insert field into form %d: %w", field.FormID, apperrors.ErrNotFound)
	}
	id := m.storeField(field, field.FormID)
	f := m.st.fields[id]
	return &f, nil
}

// storeField saves a copy of src on formID with fresh ids for the field, its
// enum values and its validators.
func (m *MemBackend) storeField(src domain.Field, formID int64) int64 {
	m.st.nextID++
	f := src
	f.ID = m.st.nextID
	f.FormID = formID
	f.Settings = maps.Clone(src.Settings)
	f.Enums = make([]domain.EnumValue, len(src.Enums))
	for i, e := range src.Enums {
		m.st.nextID++
		e.ID = m.st.nextID
		e.FieldID = f.ID
		f.Enums[i] = e
	}
	f.Validators = make([]domain.Validator, len(src.Validators))
	for i, v := range src.Validators {
		m.st.nextID++
		v.ID = m.st.nextID
		v.FieldID = f.ID
		v.Settings = maps.Clone(v.Settings)
		f.Validators[i] = v
	}
	m.st.fields[f.ID] = f
	return f.ID
}

func (m *MemBackend) ListFields(_ context.Context, formID int64, activeOnly bool) ([]domain.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Field
	for _, f := range m.st.fields {
		if f.FormID != formID || (activeOnly && !f.Active) {
			continue
		}
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b domain.Field) int {
		if activeOnly && a.Sort != b.Sort {
			return cmp.Compare(a.Sort, b.Sort)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *MemBackend) InsertResult(_ context.Context, result domain.Result) (*domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected(OpInsertResult, result.FormID); err != nil {
		return nil, err
	}
	if _, ok := m.st.forms[result.FormID]; !ok {
		return nil, fmt.Errorf("insert result of form %d: %w", result.FormID, apperrors.ErrNotFound)
	}
	m.st.nextID++
	r := result
	r.ID = m.st.nextID
	r.Values = make([]domain.ResultValue, len(result.Values))
	for i, v := range result.Values {
		m.st.nextID++
		v.ID = m.st.nextID
		v.ResultID = r.ID
		r.Values[i] = v
	}
	m.st.results[r.ID] = r
	return &r, nil
}

func (m *MemBackend) CountResults(_ context.Context, formID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, r := range m.st.results {
		if r.FormID == formID {
			n++
		}
	}
	return n, nil
}

func (m *MemBackend) checkUnique(selfID int64, code string, xmlID *string) error {
	for id, f := range m.st.forms {
		if id == selfID {
			continue
		}
		if f.Code == code {
			return fmt.Errorf("form code %q: %w", code, apperrors.ErrConflict)
		}
		if xmlID != nil && f.XMLID != nil && *f.XMLID == *xmlID {
			return fmt.Errorf("form xml id %q: %w", *xmlID, apperrors.ErrConflict)
		}
	}
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
