package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formbuilder.io/formbuilder/internal/domain"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
	"formbuilder.io/formbuilder/internal/service"
	"formbuilder.io/formbuilder/internal/testutil"
)

func TestHandle_Guards(t *testing.T) {
	tests := []struct {
		name     string
		current  domain.Status
		desired  domain.Status
		wantKind apperrors.Kind
		wantCode string
	}{
		{"archived form is immutable", domain.StatusArchived, domain.StatusArchived, apperrors.KindForbidden, apperrors.CodeFormArchivedImmutable},
		{"archived form cannot be republished", domain.StatusArchived, domain.StatusPublished, apperrors.KindForbidden, apperrors.CodeFormArchivedImmutable},
		{"editing form cannot be archived", domain.StatusEditing, domain.StatusArchived, apperrors.KindForbidden, apperrors.CodeFormArchiveForbidden},
		{"published form cannot be archived", domain.StatusPublished, domain.StatusArchived, apperrors.KindForbidden, apperrors.CodeFormArchiveForbidden},
		{"published form cannot go back to editing", domain.StatusPublished, domain.StatusEditing, apperrors.KindForbidden, apperrors.CodeFormPublishedStatusImmutable},
		{"unknown status", domain.StatusEditing, domain.Status(7), apperrors.KindValidationFailure, apperrors.CodeFormStatusInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			form := e.createForm(t, "c1", tt.current)
			before, err := e.store.List(context.Background(), domain.FormFilter{IncludeDeleted: true})
			require.NoError(t, err)

			_, err = e.handler.Handle(context.Background(), form.ID, desired(form, func(a *domain.FormAttributes) {
				a.Status = tt.desired
				a.Name = "changed"
			}))
			require.Error(t, err)

			appErr, ok := apperrors.IsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, appErr.Kind)
			assert.Equal(t, tt.wantCode, appErr.Code)

			after, err := e.store.List(context.Background(), domain.FormFilter{IncludeDeleted: true})
			require.NoError(t, err)
			assert.Equal(t, before, after, "no writes before the guards pass")
		})
	}
}

func TestHandle_NotFound(t *testing.T) {
	e := newEnv(t)

	_, err := e.handler.Handle(context.Background(), 42, domain.FormAttributes{Status: domain.StatusEditing})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestHandle_PlainEdit(t *testing.T) {
	e := newEnv(t)
	form := e.createForm(t, "c1", domain.StatusEditing)

	want := desired(form, func(a *domain.FormAttributes) { a.Name = "Renamed" })
	res, err := e.handler.Handle(context.Background(), form.ID, want)
	require.NoError(t, err)

	assert.Equal(t, service.EffectNone, res.Effect)
	assert.Equal(t, form.ID, res.FormID)
	assert.Equal(t, want, res.Fields)
	assert.Equal(t, "Form c1", e.reload(t, form.ID).Name, "the handler does not save the edit itself")
}

func TestHandle_PublishWithoutPublishedAncestor(t *testing.T) {
	e := newEnv(t)
	form := e.createForm(t, "c1", domain.StatusEditing)

	res, err := e.handler.Handle(context.Background(), form.ID, desired(form, func(a *domain.FormAttributes) {
		a.Status = domain.StatusPublished
	}))
	require.NoError(t, err)

	assert.Equal(t, service.EffectPublish, res.Effect)
	assert.Empty(t, res.ArchivedIDs)
	assert.Equal(t, "c1", res.Fields.Code)
	assert.Equal(t, "c1", e.reload(t, form.ID).Code)
}

func TestHandle_PublishArchivesPublishedAncestor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ancestor := e.createForm(t, "c1", domain.StatusPublished)
	older := e.createForm(t, "c0", domain.StatusArchived)
	chain := domain.VersionChain{older.ID, ancestor.ID}
	draft, err := e.store.Create(ctx, domain.FormAttributes{
		Code: "1748779200_c1", Name: "Draft", Status: domain.StatusEditing, PreviousVersions: chain, DateCreate: now,
	})
	require.NoError(t, err)

	res, err := e.handler.Handle(ctx, draft.ID, desired(draft, func(a *domain.FormAttributes) {
		a.Status = domain.StatusPublished
	}))
	require.NoError(t, err)

	assert.Equal(t, service.EffectPublish, res.Effect)
	assert.Equal(t, []int64{ancestor.ID}, res.ArchivedIDs)
	assert.Equal(t, "c1", res.Fields.Code)

	a := e.reload(t, ancestor.ID)
	assert.Equal(t, domain.StatusArchived, a.Status)
	assert.Equal(t, domain.TimestampedCode(created, "c1"), a.Code)
	assert.Equal(t, "1736496000_c1", a.Code)

	assert.Equal(t, "c1", e.reload(t, draft.ID).Code)
	assert.Equal(t, "c0", e.reload(t, older.ID).Code, "already archived versions are left alone")

	rec, err := e.mem.GetSupport(ctx, ancestor.ID)
	require.NoError(t, err)
	assert.False(t, rec.Active)
	assert.Equal(t, domain.StatusArchived, rec.Status)
}

func TestHandle_PublishFailureRollsBack(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ancestor := e.createForm(t, "c1", domain.StatusPublished)
	draft, err := e.store.Create(ctx, domain.FormAttributes{
		Code: "draft", Name: "Draft", PreviousVersions: domain.VersionChain{ancestor.ID},
	})
	require.NoError(t, err)

	e.mem.FailFor(testutil.OpUpdateForm, func(id int64) bool { return id == draft.ID }, errors.New("disk full"))

	_, err = e.handler.Handle(ctx, draft.ID, desired(draft, func(a *domain.FormAttributes) {
		a.Status = domain.StatusPublished
	}))
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeFormPublishFailed, appErr.Code)
	assert.Equal(t, apperrors.KindPersistenceFailure, appErr.Kind)
	assert.NotEmpty(t, appErr.Details)

	a := e.reload(t, ancestor.ID)
	assert.Equal(t, domain.StatusPublished, a.Status)
	assert.Equal(t, "c1", a.Code)
}

func TestHandle_ForkLeavesPublishedFormUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	published := e.createForm(t, "c1", domain.StatusPublished)
	e.addField(t, published.ID, domain.Field{Code: "name", Name: "Name", Type: "string", Active: true})

	res, err := e.handler.Handle(ctx, published.ID, desired(published, func(a *domain.FormAttributes) {
		a.Name = "Renamed"
	}))
	require.NoError(t, err)

	assert.Equal(t, service.EffectFork, res.Effect)
	assert.NotEqual(t, published.ID, res.FormID)
	assert.Equal(t, published.ID, res.SourceID)

	assert.Equal(t, domain.StatusEditing, res.Fields.Status)
	assert.Equal(t, "1748779200_c1", res.Fields.Code)
	assert.Equal(t, domain.VersionChain{published.ID}, res.Fields.PreviousVersions)
	assert.Equal(t, now, res.Fields.DateCreate)
	assert.Equal(t, "Renamed", res.Fields.Name)

	fork := e.reload(t, res.FormID)
	assert.Equal(t, domain.StatusEditing, fork.Status)
	assert.Equal(t, "1748779200_c1", fork.Code)
	assert.Equal(t, domain.VersionChain{published.ID}, fork.PreviousVersions)

	source := e.reload(t, published.ID)
	assert.Equal(t, published.FormAttributes, source.FormAttributes)

	ids, err := e.mem.ListFieldIDs(ctx, fork.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestHandle_ForkAppendsToVersionChain(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	form, err := e.store.Create(ctx, domain.FormAttributes{
		Code: "c1", Name: "Form", Status: domain.StatusPublished, PreviousVersions: domain.VersionChain{3, 7},
	})
	require.NoError(t, err)

	res, err := e.handler.Handle(ctx, form.ID, desired(form, nil))
	require.NoError(t, err)

	fork := e.reload(t, res.FormID)
	assert.Len(t, fork.PreviousVersions, len(form.PreviousVersions)+1)
	assert.Equal(t, domain.VersionChain{3, 7, form.ID}, fork.PreviousVersions)
}

func TestHandle_ForkFailureWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	published := e.createForm(t, "c1", domain.StatusPublished)
	e.addField(t, published.ID, domain.Field{Code: "a", Name: "A", Type: "string"})
	e.mem.Fail(testutil.OpCopyField, errors.New("copy failed"))

	_, err := e.handler.Handle(ctx, published.ID, desired(published, nil))
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeFormCopyFailed, appErr.Code)

	forms, err := e.store.List(ctx, domain.FormFilter{})
	require.NoError(t, err)
	assert.Len(t, forms, 1)
}

func TestHandle_RowLocking(t *testing.T) {
	tests := []struct {
		name string
		opts []service.HandlerOption
		want int
	}{
		{"locks by default", nil, 1},
		{"disabled", []service.HandlerOption{service.WithRowLocking(false)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, tt.opts...)
			form := e.createForm(t, "c1", domain.StatusEditing)

			_, err := e.handler.Handle(context.Background(), form.ID, desired(form, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.mem.LockedReads())
		})
	}
}

func TestCopyForm(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	copier := service.NewFormCopier(e.store, e.mem)

	source := e.createForm(t, "src", domain.StatusEditing)
	e.addField(t, source.ID, domain.Field{
		Code: "color", Name: "Color", Type: "list", Sort: 20, Active: true,
		Enums: []domain.EnumValue{{Value: "red", Sort: 1}, {Value: "blue", Sort: 2}},
	})
	e.addField(t, source.ID, domain.Field{
		Code: "email", Name: "Email", Type: "email", Sort: 10, Active: true, Required: true,
		Validators: []domain.Validator{{Name: "email"}},
	})
	e.addField(t, source.ID, domain.Field{
		Code: "note", Name: "Note", Type: "text", Settings: map[string]any{"rows": 4.0},
	})

	copied, err := copier.CopyForm(ctx, source.ID, domain.FormPatch{Code: domain.Ptr("dst")})
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, copied.ID)
	assert.Equal(t, "dst", copied.Code)
	assert.Equal(t, source.Name, copied.Name)

	srcFields, err := e.mem.ListFields(ctx, source.ID, false)
	require.NoError(t, err)
	dstFields, err := e.mem.ListFields(ctx, copied.ID, false)
	require.NoError(t, err)
	require.Len(t, dstFields, len(srcFields))

	for i := range srcFields {
		src, dst := srcFields[i], dstFields[i]
		assert.NotEqual(t, src.ID, dst.ID)
		assert.Equal(t, copied.ID, dst.FormID)
		assert.Equal(t, stripIDs(src), stripIDs(dst))
	}
}

func TestCopyForm_FailureLeavesNoPartialCopy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	copier := service.NewFormCopier(e.store, e.mem)

	source := e.createForm(t, "src", domain.StatusEditing)
	e.addField(t, source.ID, domain.Field{Code: "a", Name: "A", Type: "string"})
	second := e.addField(t, source.ID, domain.Field{Code: "b", Name: "B", Type: "string"})
	e.mem.FailFor(testutil.OpCopyField, func(id int64) bool { return id == second.ID }, errors.New("boom"))

	_, err := copier.CopyForm(ctx, source.ID, domain.FormPatch{Code: domain.Ptr("dst")})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPersistenceFailure, apperrors.KindOf(err))

	forms, err := e.store.List(ctx, domain.FormFilter{})
	require.NoError(t, err)
	assert.Len(t, forms, 1)

	records, err := e.mem.ListSupport(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCopyForm_MissingSource(t *testing.T) {
	e := newEnv(t)
	copier := service.NewFormCopier(e.store, e.mem)

	_, err := copier.CopyForm(context.Background(), 9, domain.FormPatch{})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func stripIDs(f domain.Field) domain.Field {
	f.ID, f.FormID = 0, 0
	enums := make([]domain.EnumValue, len(f.Enums))
	for i, e := range f.Enums {
		e.ID, e.FieldID = 0, 0
		enums[i] = e
	}
	f.Enums = enums
	validators := make([]domain.Validator, len(f.Validators))
	for i, v := range f.Validators {
		v.ID, v.FieldID = 0, 0
		validators[i] = v
	}
	f.Validators = validators
	return f
}

func TestHandle_ForkClearsXMLID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	published, err := e.store.Create(ctx, domain.FormAttributes{
		Code: "c1", XMLID: domain.Ptr("ext-1"), Name: "Form", Status: domain.StatusPublished, Active: true, DateCreate: created,
	})
	require.NoError(t, err)

	res, err := e.handler.Handle(ctx, published.ID, desired(published, func(a *domain.FormAttributes) {
		a.Name = "Edited"
	}))
	require.NoError(t, err)

	assert.Equal(t, service.EffectFork, res.Effect)
	assert.NotEqual(t, published.ID, res.FormID)
	assert.Nil(t, res.Fields.XMLID)
	assert.Nil(t, e.reload(t, res.FormID).XMLID)

	source := e.reload(t, published.ID)
	require.NotNil(t, source.XMLID)
	assert.Equal(t, "ext-1", *source.XMLID)
}

func TestHandle_SoftDeletedFormIsGone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	form := e.createForm(t, "c1", domain.StatusEditing)
	_, err := e.mem.UpdateForm(ctx, form.ID, domain.FormPatch{IsDeleted: domain.Ptr(true), IsSync: domain.Ptr(false)})
	require.NoError(t, err)

	_, err = e.handler.Handle(ctx, form.ID, desired(form, func(a *domain.FormAttributes) {
		a.Status = domain.StatusPublished
	}))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.Equal(t, domain.StatusEditing, e.reload(t, form.ID).Status)
}
