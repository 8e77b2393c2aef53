package formstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formbuilder.io/formbuilder/internal/domain"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
	"formbuilder.io/formbuilder/internal/repository/formstore"
	"formbuilder.io/formbuilder/internal/testutil"
)

var (
	fixedNow = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	errDown  = errors.New("support table unavailable")
)

func newStore(t *testing.T) (*formstore.Store, *testutil.MemBackend) {
	t.Helper()
	mem := testutil.NewMemBackend()
	return formstore.New(mem, formstore.WithClock(func() time.Time { return fixedNow })), mem
}

func support(t *testing.T, mem *testutil.MemBackend, formID int64) *domain.SupportRecord {
	t.Helper()
	rec, err := mem.GetSupport(context.Background(), formID)
	require.NoError(t, err)
	return rec
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name          string
		attrs         domain.FormAttributes
		wantStatus    domain.Status
		supportActive bool
	}{
		{
			name:          "defaults to editing",
			attrs:         domain.FormAttributes{Code: "contact", Name: "Contact", Active: true},
			wantStatus:    domain.StatusEditing,
			supportActive: false,
		},
		{
			name:          "published and active",
			attrs:         domain.FormAttributes{Code: "contact", Name: "Contact", Active: true, Status: domain.StatusPublished},
			wantStatus:    domain.StatusPublished,
			supportActive: true,
		},
		{
			name:          "published but inactive",
			attrs:         domain.FormAttributes{Code: "contact", Name: "Contact", Status: domain.StatusPublished},
			wantStatus:    domain.StatusPublished,
			supportActive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mem := newStore(t)

			form, err := store.Create(context.Background(), tt.attrs)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, form.Status)
			assert.True(t, form.IsSync)
			assert.Equal(t, fixedNow, form.DateCreate)

			rec := support(t, mem, form.ID)
			assert.Equal(t, tt.supportActive, rec.Active)
			assert.Equal(t, "contact", rec.Code)
			assert.Equal(t, tt.wantStatus, rec.Status)
		})
	}
}

func TestCreate_NormalizesXMLID(t *testing.T) {
	store, _ := newStore(t)

	form, err := store.Create(context.Background(), domain.FormAttributes{
		Code: " feedback ", Name: "Feedback", XMLID: domain.Ptr("  "),
	})
	require.NoError(t, err)
	assert.Nil(t, form.XMLID)
	assert.Equal(t, "feedback", form.Code)

	// Two forms without an external id do not collide.
	_, err = store.Create(context.Background(), domain.FormAttributes{Code: "other", Name: "Other", XMLID: domain.Ptr("")})
	require.NoError(t, err)
}

func TestCreate_DuplicateCodeFailsWithoutSupportWrite(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, domain.FormAttributes{Code: "dup", Name: "First"})
	require.NoError(t, err)

	_, err = store.Create(ctx, domain.FormAttributes{Code: "dup", Name: "Second"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPersistenceFailure, apperrors.KindOf(err))
	appErr, _ := apperrors.IsAppError(err)
	assert.Equal(t, apperrors.CodeFormCodeTaken, appErr.Code)

	records, err := mem.ListSupport(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCreate_SupportFailureLeavesFormUnsynced(t *testing.T) {
	store, mem := newStore(t)
	mem.Fail(testutil.OpUpsertSupport, errDown)

	form, err := store.Create(context.Background(), domain.FormAttributes{Code: "c1", Name: "C1", Active: true})
	require.NoError(t, err)
	assert.False(t, form.IsSync)

	stored, err := store.Get(context.Background(), form.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsSync)

	_, err = mem.GetSupport(context.Background(), form.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreate_Validation(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Create(context.Background(), domain.FormAttributes{Status: domain.Status(9)})
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindValidationFailure, appErr.Kind)
	assert.Len(t, appErr.Details, 3)
}

func TestUpdate_SupportRelevantFieldResyncs(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()

	form, err := store.Create(ctx, domain.FormAttributes{Code: "c1", Name: "Old", Status: domain.StatusPublished, Active: true})
	require.NoError(t, err)

	updated, err := store.Update(ctx, form.ID, domain.FormPatch{Name: domain.Ptr("New")})
	require.NoError(t, err)
	assert.True(t, updated.IsSync)
	assert.Equal(t, "New", updated.Name)

	rec := support(t, mem, form.ID)
	assert.Equal(t, "New", rec.Name)
	assert.True(t, rec.Active, "active is computed from the merged row")

	_, err = store.Update(ctx, form.ID, domain.FormPatch{Active: domain.Ptr(false)})
	require.NoError(t, err)
	assert.False(t, support(t, mem, form.ID).Active)
}

func TestUpdate_SupportFailureKeepsPrimaryUpdate(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()

	form, err := store.Create(ctx, domain.FormAttributes{Code: "c1", Name: "Old"})
	require.NoError(t, err)

	mem.Fail(testutil.OpUpsertSupport, errDown)
	updated, err := store.Update(ctx, form.ID, domain.FormPatch{Name: domain.Ptr("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.False(t, updated.IsSync)

	assert.Equal(t, "Old", support(t, mem, form.ID).Name)
}

func TestUpdate_NonSupportFieldLeavesSyncAlone(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()

	form, err := store.Create(ctx, domain.FormAttributes{Code: "c1", Name: "Form"})
	require.NoError(t, err)

	mem.Fail(testutil.OpUpsertSupport, errDown)
	updated, err := store.Update(ctx, form.ID, domain.FormPatch{XMLID: domain.Ptr("ext")})
	require.NoError(t, err)
	assert.True(t, updated.IsSync)
	assert.Equal(t, "ext", *updated.XMLID)
}

func TestUpdate_ExplicitIsSyncIsRespected(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()

	form, err := store.Create(ctx, domain.FormAttributes{Code: "c1", Name: "Form"})
	require.NoError(t, err)

	mem.Fail(testutil.OpUpsertSupport, errDown)
	updated, err := store.Update(ctx, form.ID, domain.FormPatch{Name: domain.Ptr("Renamed"), IsSync: domain.Ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsSync)
}

func TestUpdate_Errors(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, 404, domain.FormPatch{Name: domain.Ptr("x")})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	form, err := store.Create(ctx, domain.FormAttributes{Code: "c1", Name: "Form"})
	require.NoError(t, err)

	_, err = store.Update(ctx, form.ID, domain.FormPatch{Name: domain.Ptr(" ")})
	assert.Equal(t, apperrors.KindValidationFailure, apperrors.KindOf(err))

	_, err = store.Update(ctx, form.ID, domain.FormPatch{Status: domain.Ptr(domain.Status(0))})
	assert.Equal(t, apperrors.KindValidationFailure, apperrors.KindOf(err))
}

func seedFormWithChildren(t *testing.T, store *formstore.Store, mem *testutil.MemBackend) *domain.Form {
	t.Helper()
	ctx := context.Background()

	form, err := store.Create(ctx, domain.FormAttributes{Code: "survey", Name: "Survey", Status: domain.StatusPublished, Active: true})
	require.NoError(t, err)

	field, err := mem.CreateField(ctx, domain.Field{
		FormID: form.ID, Code: "color", Name: "Color", Type: "list", Active: true,
		Enums: []domain.EnumValue{{Value: "red"}, {Value: "blue"}},
	})
	require.NoError(t, err)

	_, err = mem.InsertResult(ctx, domain.Result{
		FormID: form.ID, DateCreate: fixedNow,
		Values: []domain.ResultValue{{FieldID: field.ID, Value: "red"}},
	})
	require.NoError(t, err)
	return form
}

func TestDelete_CascadesAndDeactivatesSupport(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()
	form := seedFormWithChildren(t, store, mem)

	out, err := store.Delete(ctx, form.ID)
	require.NoError(t, err)
	assert.False(t, out.SoftDeleted)

	_, err = store.Get(ctx, form.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	ids, err := mem.ListFieldIDs(ctx, form.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	n, err := mem.CountResults(ctx, form.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	rec := support(t, mem, form.ID)
	assert.False(t, rec.Active, "support record is kept but deactivated")
}

func TestDelete_ChildFailureKeepsForm(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()
	form := seedFormWithChildren(t, store, mem)

	mem.Fail(testutil.OpDeleteForm, errors.New("cascade failed"))
	_, err := store.Delete(ctx, form.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPersistenceFailure, apperrors.KindOf(err))

	stored, err := store.Get(ctx, form.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDeleted)

	ids, err := mem.ListFieldIDs(ctx, form.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
	assert.True(t, support(t, mem, form.ID).Active)
}

func TestDelete_SupportFailureSoftDeletes(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()
	form := seedFormWithChildren(t, store, mem)

	mem.Fail(testutil.OpDeactivateSupport, errDown)
	out, err := store.Delete(ctx, form.ID)
	require.NoError(t, err)
	assert.True(t, out.SoftDeleted)

	stored, err := store.Get(ctx, form.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)
	assert.False(t, stored.IsSync)

	n, err := mem.CountResults(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "the rolled back delete keeps the children")
}

func TestDelete_NotFound(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Delete(context.Background(), 77)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestInTx_OuterFailureRollsBackEverything(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()

	err := store.InTx(ctx, func(ctx context.Context) error {
		if _, err := store.Create(ctx, domain.FormAttributes{Code: "a", Name: "A"}); err != nil {
			return err
		}
		return errors.New("later step failed")
	})
	require.Error(t, err)

	forms, err := store.List(ctx, domain.FormFilter{})
	require.NoError(t, err)
	assert.Empty(t, forms)

	records, err := mem.ListSupport(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetForUpdate_LocksInsideTransaction(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()

	form, err := store.Create(ctx, domain.FormAttributes{Code: "c", Name: "C"})
	require.NoError(t, err)

	_, err = store.GetForUpdate(ctx, form.ID)
	require.NoError(t, err)
	assert.Zero(t, mem.LockedReads())

	require.NoError(t, store.InTx(ctx, func(ctx context.Context) error {
		_, err := store.GetForUpdate(ctx, form.ID)
		return err
	}))
	assert.Equal(t, 1, mem.LockedReads())
}

func TestListByIDsAndStatus(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	a, err := store.Create(ctx, domain.FormAttributes{Code: "a", Name: "A", Status: domain.StatusPublished})
	require.NoError(t, err)
	b, err := store.Create(ctx, domain.FormAttributes{Code: "b", Name: "B"})
	require.NoError(t, err)

	forms, err := store.ListByIDsAndStatus(ctx, []int64{a.ID, b.ID, 99}, domain.StatusPublished)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, a.ID, forms[0].ID)

	forms, err = store.ListByIDsAndStatus(ctx, nil, domain.StatusPublished)
	require.NoError(t, err)
	assert.Empty(t, forms)
}

func TestList_Filters(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, domain.FormAttributes{Code: "a", Name: "Alpha", Status: domain.StatusPublished})
	require.NoError(t, err)
	_, err = store.Create(ctx, domain.FormAttributes{Code: "b", Name: "Beta"})
	require.NoError(t, err)
	mem.Fail(testutil.OpUpsertSupport, errDown)
	_, err = store.Create(ctx, domain.FormAttributes{Code: "c", Name: "alphabet"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter domain.FormFilter
		want   []string
	}{
		{"all newest first", domain.FormFilter{}, []string{"c", "b", "a"}},
		{"by status", domain.FormFilter{Status: domain.Ptr(domain.StatusEditing)}, []string{"c", "b"}},
		{"by name", domain.FormFilter{NameContains: "ALPHA"}, []string{"c", "a"}},
		{"unsynced", domain.FormFilter{IsSync: domain.Ptr(false)}, []string{"c"}},
		{"paged", domain.FormFilter{Limit: 1, Offset: 1}, []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forms, err := store.List(ctx, tt.filter)
			require.NoError(t, err)
			var codes []string
			for _, f := range forms {
				codes = append(codes, f.Code)
			}
			assert.Equal(t, tt.want, codes)
		})
	}

	_, err = store.List(ctx, domain.FormFilter{Status: domain.Ptr(domain.Status(5))})
	assert.Equal(t, apperrors.KindValidationFailure, apperrors.KindOf(err))
}

func TestListSupportOptions(t *testing.T) {
	mem := testutil.NewMemBackend()
	clock := fixedNow
	store := formstore.New(mem, formstore.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	_, err := store.Create(ctx, domain.FormAttributes{Code: "b1", Name: "Booking", Status: domain.StatusPublished})
	require.NoError(t, err)
	clock = fixedNow.Add(time.Hour)
	_, err = store.Create(ctx, domain.FormAttributes{Code: "b2", Name: "Booking"})
	require.NoError(t, err)
	_, err = store.Create(ctx, domain.FormAttributes{Code: "a1", Name: "Appointment"})
	require.NoError(t, err)

	options, err := store.ListSupportOptions(ctx)
	require.NoError(t, err)
	require.Len(t, options, 3)
	assert.Equal(t, "[Editing] Appointment from 01.06.2025 13:30:00", options[0].Label)
	assert.Equal(t, "[Editing] Booking from 01.06.2025 13:30:00", options[1].Label)
	assert.Equal(t, "[Published] Booking from 01.06.2025 12:30:00", options[2].Label)
}

func TestResync(t *testing.T) {
	store, mem := newStore(t)
	ctx := context.Background()

	mem.Fail(testutil.OpUpsertSupport, errDown)
	form, err := store.Create(ctx, domain.FormAttributes{Code: "c", Name: "C", Status: domain.StatusPublished, Active: true})
	require.NoError(t, err)
	require.False(t, form.IsSync)

	_, err = store.Resync(ctx, form.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindSyncFailure, apperrors.KindOf(err))

	mem.ClearFailures()
	synced, err := store.Resync(ctx, form.ID)
	require.NoError(t, err)
	assert.True(t, synced.IsSync)
	assert.True(t, support(t, mem, form.ID).Active)

	unsynced, err := store.ListUnsynced(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}
