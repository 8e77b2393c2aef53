package service

import (
	"context"
	"fmt"

	"formbuilder.io/formbuilder/internal/domain"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
	"formbuilder.io/formbuilder/internal/repository/formstore"
)

// FieldCopier copies a field, with its enum values and validators, onto
// another form.
type FieldCopier interface {
	ListFieldIDs(ctx context.Context, formID int64) ([]int64, error)
	CopyField(ctx context.Context, fieldID int64, overrides domain.FieldOverrides) (int64, error)
}

// FormCopier duplicates a form together with everything it owns.
type FormCopier struct {
	forms  *formstore.Store
	fields FieldCopier
}

func NewFormCopier(forms *formstore.Store, fields FieldCopier) *FormCopier {
	return &FormCopier{forms: forms, fields: fields}
}

// CopyForm inserts a new form built from source with overrides applied and
// copies every source field onto it, in id order. Either the form and all
// of its fields are written, or nothing is.
func (c *FormCopier) CopyForm(ctx context.Context, sourceID int64, overrides domain.FormPatch) (*domain.Form, error) {
	source, err := c.forms.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	attrs := overrides.ApplyTo(source.FormAttributes)

	fieldIDs, err := c.fields.ListFieldIDs(ctx, sourceID)
	if err != nil {
		return nil, copyFailed(err, sourceID, "list fields")
	}

	var created *domain.Form
	err = c.forms.InTx(ctx, func(ctx context.Context) error {
		form, err := c.forms.Create(ctx, attrs)
		if err != nil {
			return err
		}
		for _, fieldID := range fieldIDs {
			if _, err := c.fields.CopyField(ctx, fieldID, domain.FieldOverrides{FormID: form.ID}); err != nil {
				return copyFailed(err, sourceID, fmt.Sprintf("copy field %d", fieldID))
			}
		}
		created = form
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func copyFailed(err error, sourceID int64, action string) error {
	kind := apperrors.KindPersistenceFailure
	if apperrors.Is(err, apperrors.ErrNotFound) {
		kind = apperrors.KindNotFound
	}
	return apperrors.Wrap(err, kind, apperrors.CodeFormCopyFailed,
		fmt.Sprintf("copy form %d: %s", sourceID, action))
}
