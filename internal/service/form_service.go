// Package service implements the form lifecycle: creating, saving,
// publishing, forking, copying and deleting forms, and accepting public
// submissions against published ones.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/fieldtype"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
	"formbuilder.io/formbuilder/internal/pkg/logger"
	"formbuilder.io/formbuilder/internal/repository/formstore"
	"formbuilder.io/formbuilder/internal/validator"
)

// FieldRepository stores form fields.
type FieldRepository interface {
	FieldCopier
	CreateField(ctx context.Context, field domain.Field) (*domain.Field, error)
	ListFields(ctx context.Context, formID int64, activeOnly bool) ([]domain.Field, error)
}

// EventPublisher receives domain events once the change that raised them is
// committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...*domain.DomainEvent)
}

// SaveOutcome is the result of FormService.Save.
type SaveOutcome struct {
	Form        *domain.Form `json:"form"`
	Effect      Effect       `json:"effect"`
	SourceID    int64        `json:"source_id,omitempty"`
	ArchivedIDs []int64      `json:"archived_ids,omitempty"`
}

// FormService is the entry point for administrative form operations.
type FormService struct {
	forms      *formstore.Store
	fields     FieldRepository
	copier     *FormCopier
	handler    *ModificationHandler
	types      *fieldtype.Registry
	validators *validator.Registry
	events     EventPublisher
	now        func() time.Time
}

func NewFormService(
	forms *formstore.Store,
	fields FieldRepository,
	handler *ModificationHandler,
	types *fieldtype.Registry,
	validators *validator.Registry,
	events EventPublisher,
) *FormService {
	return &FormService{
		forms:      forms,
		fields:     fields,
		copier:     handler.copier,
		handler:    handler,
		types:      types,
		validators: validators,
		events:     events,
		now:        handler.now,
	}
}

// Create adds a new form. Forms are never created archived.
func (s *FormService) Create(ctx context.Context, attrs domain.FormAttributes) (*domain.Form, error) {
	if attrs.Status == domain.StatusArchived {
		return nil, apperrors.ErrFormArchiveForbidden()
	}
	form, err := s.forms.Create(ctx, attrs)
	if err != nil {
		return nil, err
	}

	logger.Info("form created", zap.Int64("form_id", form.ID), zap.String("code", form.Code))
	s.publish(ctx, s.formEvent(ctx, domain.EventFormCreated, form, 0))
	s.publishDegraded(ctx, form, "create")
	return form, nil
}

func (s *FormService) Get(ctx context.Context, id int64) (*domain.Form, error) {
	return s.forms.Get(ctx, id)
}

func (s *FormService) List(ctx context.Context, filter domain.FormFilter) ([]domain.Form, error) {
	return s.forms.List(ctx, filter)
}

// Options returns the entries of the form selector.
func (s *FormService) Options(ctx context.Context) ([]domain.SupportOption, error) {
	return s.forms.ListSupportOptions(ctx)
}

// Save stores desired as the new state of form id, applying the lifecycle
// effect first. Editing a published form saves desired onto the fork; the
// published form itself is left as it was.
func (s *FormService) Save(ctx context.Context, id int64, desired domain.FormAttributes) (*SaveOutcome, error) {
	var out SaveOutcome
	err := s.forms.InTx(ctx, func(ctx context.Context) error {
		res, err := s.handler.Handle(ctx, id, desired)
		if err != nil {
			return err
		}

		patch := domain.PatchFromAttributes(res.Fields)
		if res.Effect != EffectFork {
			patch.PreviousVersions = nil
		}
		if res.Fields.DateCreate.IsZero() {
			patch.DateCreate = nil
		}
		form, err := s.forms.Update(ctx, res.FormID, patch)
		if err != nil {
			return err
		}

		out = SaveOutcome{
			Form:        form,
			Effect:      res.Effect,
			SourceID:    res.SourceID,
			ArchivedIDs: res.ArchivedIDs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishSave(ctx, &out)
	return &out, nil
}

func (s *FormService) publishSave(ctx context.Context, out *SaveOutcome) {
	var events []*domain.DomainEvent
	switch out.Effect {
	case EffectPublish:
		for _, id := range out.ArchivedIDs {
			events = append(events, s.event(ctx, domain.EventFormArchived, domain.FormEventPayload{
				FormID:   id,
				Status:   domain.StatusArchived.String(),
				SourceID: out.Form.ID,
			}))
		}
		events = append(events, s.event(ctx, domain.EventFormPublished, domain.FormEventPayload{
			FormID:      out.Form.ID,
			Code:        out.Form.Code,
			Status:      out.Form.Status.String(),
			ArchivedIDs: out.ArchivedIDs,
		}))
	case EffectFork:
		events = append(events, s.formEvent(ctx, domain.EventFormForked, out.Form, out.SourceID))
	default:
		events = append(events, s.formEvent(ctx, domain.EventFormUpdated, out.Form, 0))
	}
	s.publish(ctx, events...)
	s.publishDegraded(ctx, out.Form, "save")
}

// Delete removes form id and everything it owns.
func (s *FormService) Delete(ctx context.Context, id int64) (domain.DeleteOutcome, error) {
	out, err := s.forms.Delete(ctx, id)
	if err != nil {
		return out, err
	}

	s.publish(ctx, s.event(ctx, domain.EventFormDeleted, domain.FormEventPayload{
		FormID:      id,
		SoftDeleted: out.SoftDeleted,
	}))
	if out.SoftDeleted {
		s.publish(ctx, s.event(ctx, domain.EventFormSyncDegraded, domain.FormEventPayload{
			FormID:    id,
			Operation: "delete",
			Reason:    "support record not deactivated",
		}))
	}
	return out, nil
}

// Copy duplicates form id as a new editable form. Unless overridden, the copy
// gets a timestamped code and no external id so it cannot collide with the
// source.
func (s *FormService) Copy(ctx context.Context, id int64, overrides domain.FormPatch) (*domain.Form, error) {
	if overrides.Status != nil && *overrides.Status == domain.StatusArchived {
		return nil, apperrors.ErrFormArchiveForbidden()
	}
	source, err := s.forms.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	defaults := domain.FormPatch{
		Code:       domain.Ptr(domain.TimestampedCode(now, source.Code)),
		XMLID:      domain.Ptr(""),
		Status:     domain.Ptr(domain.StatusEditing),
		DateCreate: &now,
	}
	form, err := s.copier.CopyForm(ctx, id, defaults.Merge(overrides))
	if err != nil {
		return nil, err
	}

	s.publish(ctx, s.formEvent(ctx, domain.EventFormCreated, form, id))
	s.publishDegraded(ctx, form, "copy")
	return form, nil
}

// Fields returns every field of form id in id order.
func (s *FormService) Fields(ctx context.Context, id int64) ([]domain.Field, error) {
	if _, err := s.forms.Get(ctx, id); err != nil {
		return nil, err
	}
	fields, err := s.fields.ListFields(ctx, id, false)
	if err != nil {
		return nil, apperrors.Persistence(err, apperrors.CodeFormPersistenceFailed,
			fmt.Sprintf("list fields of form %d", id))
	}
	return fields, nil
}

// AddField adds a field with its enum values and validators to form id.
// Only forms being edited take new fields.
func (s *FormService) AddField(ctx context.Context, id int64, field domain.Field) (*domain.Field, error) {
	form, err := s.forms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canChangeForm(form); err != nil {
		return nil, err
	}
	if form.Status == domain.StatusPublished {
		return nil, apperrors.ErrFormPublishedImmutable(id)
	}

	field.FormID = id
	field.Code = strings.TrimSpace(field.Code)
	field.Name = strings.TrimSpace(field.Name)
	if err := s.checkField(field); err != nil {
		return nil, err
	}

	created, err := s.fields.CreateField(ctx, field)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrFormNotFound(id)
		}
		return nil, apperrors.Persistence(err, apperrors.CodeFormPersistenceFailed,
			fmt.Sprintf("add field to form %d", id))
	}

	s.publish(ctx, s.event(ctx, domain.EventFormUpdated, domain.FormEventPayload{
		FormID:    id,
		Code:      form.Code,
		Operation: "add_field",
	}))
	return created, nil
}

func (s *FormService) checkField(field domain.Field) error {
	var fieldErrors []apperrors.FieldError
	if field.Code == "" {
		fieldErrors = append(fieldErrors, apperrors.FieldError{Field: "code", Code: apperrors.CodeFieldRequired})
	}
	if field.Name == "" {
		fieldErrors = append(fieldErrors, apperrors.FieldError{Field: "name", Code: apperrors.CodeFieldRequired})
	}

	typ, err := s.types.Type(field.Type)
	if err != nil {
		fieldErrors = append(fieldErrors, apperrors.FieldError{
			Field: "type", Code: apperrors.CodeFieldTypeUnknown, Message: err.Error(),
		})
	} else if len(field.Enums) > 0 && !typ.SupportsEnum() {
		fieldErrors = append(fieldErrors, apperrors.FieldError{
			Field: "enums", Code: apperrors.CodeFieldInvalid,
			Message: fmt.Sprintf("field type %q has no enum values", field.Type),
		})
	}

	for i, v := range field.Validators {
		if _, err := s.validators.CreateFromSettings(v.Name, v.Settings); err != nil {
			fieldErrors = append(fieldErrors, apperrors.FieldError{
				Field: fmt.Sprintf("validators[%d]", i), Code: apperrors.CodeValidatorUnknown, Message: err.Error(),
			})
		}
	}

	if len(fieldErrors) > 0 {
		return apperrors.Validation(apperrors.CodeValidationFailed, "invalid field").
			WithFieldErrors(fieldErrors)
	}
	return nil
}

func (s *FormService) publishDegraded(ctx context.Context, form *domain.Form, operation string) {
	if form.IsSync {
		return
	}
	s.publish(ctx, s.event(ctx, domain.EventFormSyncDegraded, domain.FormEventPayload{
		FormID:    form.ID,
		Code:      form.Code,
		Operation: operation,
		Reason:    "support record not written",
	}))
}

func (s *FormService) formEvent(ctx context.Context, t domain.EventType, form *domain.Form, sourceID int64) *domain.DomainEvent {
	return s.event(ctx, t, domain.FormEventPayload{
		FormID:   form.ID,
		Code:     form.Code,
		Status:   form.Status.String(),
		SourceID: sourceID,
	})
}

func (s *FormService) event(ctx context.Context, t domain.EventType, payload domain.FormEventPayload) *domain.DomainEvent {
	e, err := domain.NewFormEvent(t, domain.ActorFrom(ctx), payload)
	if err != nil {
		logger.Error("build domain event", zap.String("event_type", string(t)), zap.Error(err))
		return nil
	}
	return e
}

// publish drops events that could not be built.
func (s *FormService) publish(ctx context.Context, events ...*domain.DomainEvent) {
	if s.events == nil {
		return
	}
	ready := events[:0]
	for _, e := range events {
		if e != nil {
			ready = append(ready, e)
		}
	}
	if len(ready) > 0 {
		s.events.Publish(ctx, ready...)
	}
}
