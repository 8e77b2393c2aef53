// Package formstore is the single source of truth for form rows. Every
// mutation keeps the support_form projection in step, inside the caller's
// transaction.
package formstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/metrics"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
	"formbuilder.io/formbuilder/internal/pkg/logger"
)

// Backend is the row-level storage the Store is built on.
//
// InTx runs fn in a transaction carried by the returned context. Called with
// a context that already carries one, it opens a savepoint instead, so a
// failing nested step rolls back alone.
//
// Implementations report a missing row with apperrors.ErrNotFound and a
// unique violation with apperrors.ErrConflict (wrapped).
type Backend interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	InsertForm(ctx context.Context, attrs domain.FormAttributes) (*domain.Form, error)
	GetForm(ctx context.Context, id int64, forUpdate bool) (*domain.Form, error)
	UpdateForm(ctx context.Context, id int64, patch domain.FormPatch) (*domain.Form, error)
	DeleteForm(ctx context.Context, id int64) error
	ListForms(ctx context.Context, filter domain.FormFilter) ([]domain.Form, error)
	ListFormsByIDsAndStatus(ctx context.Context, ids []int64, status domain.Status) ([]domain.Form, error)
	ListUnsyncedForms(ctx context.Context, limit int) ([]domain.Form, error)

	UpsertSupport(ctx context.Context, rec domain.SupportRecord) error
	DeactivateSupport(ctx context.Context, formID int64) error
	ListSupport(ctx context.Context) ([]domain.SupportRecord, error)
}

// Store implements the form record operations.
type Store struct {
	backend Backend
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Store)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock sets the clock used for default creation dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InTx runs fn as one unit of work. Store calls made with the context passed
// to fn join it.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.InTx(ctx, fn)
}

// Create inserts a form and its support record.
//
// A duplicate code or xml id fails before the support record is touched.
// If only the support write fails, the form is kept with IsSync=false.
func (s *Store) Create(ctx context.Context, attrs domain.FormAttributes) (*domain.Form, error) {
	attrs = s.normalize(attrs)
	if err := validateAttributes(attrs); err != nil {
		return nil, err
	}

	var created *domain.Form
	err := s.backend.InTx(ctx, func(ctx context.Context) error {
		form, err := s.backend.InsertForm(ctx, attrs)
		if err != nil {
			return mapError(err, 0, "insert form")
		}
		created = s.syncSupport(ctx, form, "create")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies patch to form id.
//
// Supplying a support-relevant attribute without IsSync marks the form
// unsynced in the same statement; the support record is then rewritten from
// the merged row and the flag set back. A failed support write leaves the
// primary update in place and the form unsynced.
func (s *Store) Update(ctx context.Context, id int64, patch domain.FormPatch) (*domain.Form, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	touchesSupport := patch.TouchesSupport()
	if touchesSupport && patch.IsSync == nil {
		patch.IsSync = domain.Ptr(false)
	}

	var updated *domain.Form
	err := s.backend.InTx(ctx, func(ctx context.Context) error {
		form, err := s.backend.UpdateForm(ctx, id, patch)
		if err != nil {
			return mapError(err, id, "update form")
		}
		updated = form
		if touchesSupport {
			updated = s.syncSupport(ctx, form, "update")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes form id with everything it owns and deactivates its support
// record, atomically. When the support record cannot be deactivated the whole
// delete is rolled back and the form is soft-flagged instead
// (IsDeleted=true, IsSync=false) for the sync job to finish later.
func (s *Store) Delete(ctx context.Context, id int64) (domain.DeleteOutcome, error) {
	out := domain.DeleteOutcome{FormID: id}

	if _, err := s.backend.GetForm(ctx, id, false); err != nil {
		return out, mapError(err, id, "load form")
	}

	var supportErr error
	err := s.backend.InTx(ctx, func(ctx context.Context) error {
		if err := s.backend.DeleteForm(ctx, id); err != nil {
			return mapError(err, id, "delete form")
		}
		if err := s.backend.DeactivateSupport(ctx, id); err != nil {
			supportErr = err
			return err
		}
		return nil
	})
	if err == nil {
		return out, nil
	}
	if supportErr == nil {
		return out, err
	}

	if _, flagErr := s.backend.UpdateForm(ctx, id, domain.FormPatch{
		IsSync:    domain.Ptr(false),
		IsDeleted: domain.Ptr(true),
	}); flagErr != nil {
		return out, apperrors.Persistence(flagErr, apperrors.CodeFormPersistenceFailed,
			fmt.Sprintf("delete form %d", id)).WithDetails(supportErr.Error())
	}

	s.metrics.SyncFailure("delete")
	logger.Warn("support record not deactivated, form soft-deleted",
		zap.Int64("form_id", id),
		zap.Error(supportErr),
	)
	out.SoftDeleted = true
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*domain.Form, error) {
	form, err := s.backend.GetForm(ctx, id, false)
	if err != nil {
		return nil, mapError(err, id, "load form")
	}
	return form, nil
}

// GetForUpdate loads form id and locks its row until the surrounding
// transaction ends. Outside a transaction it behaves like Get.
func (s *Store) GetForUpdate(ctx context.Context, id int64) (*domain.Form, error) {
	form, err := s.backend.GetForm(ctx, id, true)
	if err != nil {
		return nil, mapError(err, id, "lock form")
	}
	return form, nil
}

// ListByIDsAndStatus returns the forms among ids that have the given status,
// ordered by id.
func (s *Store) ListByIDsAndStatus(ctx context.Context, ids []int64, status domain.Status) ([]domain.Form, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	forms, err := s.backend.ListFormsByIDsAndStatus(ctx, ids, status)
	if err != nil {
		return nil, mapError(err, 0, "list forms by id")
	}
	return forms, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Store) List(ctx context.Context, filter domain.FormFilter) ([]domain.Form, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperrors.Validation(apperrors.CodeFormStatusInvalid,
			fmt.Sprintf("unknown form status %d", *filter.Status))
	}
	forms, err := s.backend.ListForms(ctx, filter)
	if err != nil {
		return nil, mapError(err, 0, "list forms")
	}
	return forms, nil
}

// ListUnsynced returns up to limit forms whose support record is stale,
// oldest first.
func (s *Store) ListUnsynced(ctx context.Context, limit int) ([]domain.Form, error) {
	forms, err := s.backend.ListUnsyncedForms(ctx, limit)
	if err != nil {
		return nil, mapError(err, 0, "list unsynced forms")
	}
	return forms, nil
}

const optionDateLayout = "02.01.2006 15:04:05"

// ListSupportOptions returns the form selector entries, ordered by name and
// then newest first.
func (s *Store) ListSupportOptions(ctx context.Context) ([]domain.SupportOption, error) {
	records, err := s.backend.ListSupport(ctx)
	if err != nil {
		return nil, mapError(err, 0, "list support records")
	}
	options := make([]domain.SupportOption, 0, len(records))
	for _, r := range records {
		options = append(options, domain.SupportOption{
			FormID: r.FormID,
			Label: fmt.Sprintf("[%s] %s from %s",
				r.Status.Title(), r.Name, r.DateCreate.Format(optionDateLayout)),
		})
	}
	return options, nil
}

// Resync rewrites the support record of form id from its current row and
// marks it synced. Unlike the write paths it fails when the support write
// fails, so the caller can count and retry.
func (s *Store) Resync(ctx context.Context, id int64) (*domain.Form, error) {
	var synced *domain.Form
	err := s.backend.InTx(ctx, func(ctx context.Context) error {
		form, err := s.backend.GetForm(ctx, id, true)
		if err != nil {
			return mapError(err, id, "lock form")
		}
		if err := s.backend.UpsertSupport(ctx, form.SupportRecord()); err != nil {
			return apperrors.Wrap(err, apperrors.KindSyncFailure, apperrors.CodeFormSyncFailed,
				fmt.Sprintf("write support record of form %d", id))
		}
		synced, err = s.backend.UpdateForm(ctx, id, domain.FormPatch{IsSync: domain.Ptr(true)})
		if err != nil {
			return mapError(err, id, "mark form synced")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return synced, nil
}

// syncSupport writes the support record of form inside a savepoint and flips
// IsSync on success. On failure it logs, counts and returns form unchanged.
func (s *Store) syncSupport(ctx context.Context, form *domain.Form, operation string) *domain.Form {
	var synced *domain.Form
	err := s.backend.InTx(ctx, func(ctx context.Context) error {
		if err := s.backend.UpsertSupport(ctx, form.SupportRecord()); err != nil {
			return fmt.Errorf("write support record: %w", err)
		}
		f, err := s.backend.UpdateForm(ctx, form.ID, domain.FormPatch{IsSync: domain.Ptr(true)})
		if err != nil {
			return fmt.Errorf("mark form synced: %w", err)
		}
		synced = f
		return nil
	})
	if err != nil {
		s.metrics.SyncFailure(operation)
		logger.Warn("support record sync failed, form left unsynced",
			zap.Int64("form_id", form.ID),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return form
	}
	return synced
}

func (s *Store) normalize(attrs domain.FormAttributes) domain.FormAttributes {
	attrs.Code = strings.TrimSpace(attrs.Code)
	attrs.Name = strings.TrimSpace(attrs.Name)
	attrs.XMLID = domain.NormalizeXMLID(attrs.XMLID)
	if attrs.Status == 0 {
		attrs.Status = domain.StatusEditing
	}
	if attrs.DateCreate.IsZero() {
		attrs.DateCreate = s.now()
	}
	attrs.DateCreate = attrs.DateCreate.UTC()
	return attrs
}

func validateAttributes(attrs domain.FormAttributes) error {
	var details []string
	if attrs.Code == "" {
		details = append(details, "code is required")
	}
	if attrs.Name == "" {
		details = append(details, "name is required")
	}
	if !attrs.Status.IsValid() {
		details = append(details, fmt.Sprintf("unknown form status %d", attrs.Status))
	}
	if len(details) > 0 {
		return apperrors.Validation(apperrors.CodeValidationFailed, "invalid form attributes").
			WithDetails(details...)
	}
	return nil
}

func validatePatch(p domain.FormPatch) error {
	var details []string
	if p.Code != nil && strings.TrimSpace(*p.Code) == "" {
		details = append(details, "code must not be empty")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		details = append(details, "name must not be empty")
	}
	if p.Status != nil && !p.Status.IsValid() {
		details = append(details, fmt.Sprintf("unknown form status %d", *p.Status))
	}
	if len(details) > 0 {
		return apperrors.Validation(apperrors.CodeValidationFailed, "invalid form attributes").
			WithDetails(details...)
	}
	return nil
}

// mapError turns backend errors into AppErrors. AppErrors pass through.
func mapError(err error, id int64, action string) error {
	if _, ok := apperrors.IsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.ErrFormNotFound(id)
	case errors.Is(err, apperrors.ErrConflict):
		return apperrors.Persistence(err, apperrors.CodeFormCodeTaken, action+": code or xml id already in use")
	default:
		return apperrors.Persistence(err, apperrors.CodeFormPersistenceFailed, action)
	}
}
