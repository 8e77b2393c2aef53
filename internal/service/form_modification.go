package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/metrics"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
	"formbuilder.io/formbuilder/internal/pkg/logger"
	"formbuilder.io/formbuilder/internal/repository/formstore"
)

// Effect is the lifecycle side effect a modification triggered.
type Effect string

const (
	// EffectNone is a plain edit of a form being edited.
	EffectNone Effect = "none"
	// EffectPublish archived the published previous versions.
	EffectPublish Effect = "publish"
	// EffectFork copied a published form into a new editable version.
	EffectFork Effect = "fork"
)

// ModificationResult tells the caller where the desired attributes go.
type ModificationResult struct {
	Effect Effect
	// FormID is the form the attributes apply to: the edited form, or the
	// new version for EffectFork.
	FormID int64
	// SourceID is the published form a fork was made from.
	SourceID int64
	// Fields are the attributes to persist onto FormID.
	Fields      domain.FormAttributes
	ArchivedIDs []int64
}

// ModificationHandler decides and applies the lifecycle consequences of an
// edit before the edited attributes themselves are saved.
type ModificationHandler struct {
	forms      *formstore.Store
	copier     *FormCopier
	metrics    *metrics.Metrics
	now        func() time.Time
	rowLocking bool
}

type HandlerOption func(*ModificationHandler)

func WithClock(now func() time.Time) HandlerOption {
	return func(h *ModificationHandler) { h.now = now }
}

// WithRowLocking controls whether the edited form is read with
// SELECT ... FOR UPDATE. On by default.
func WithRowLocking(enabled bool) HandlerOption {
	return func(h *ModificationHandler) { h.rowLocking = enabled }
}

func WithHandlerMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *ModificationHandler) { h.metrics = m }
}

func NewModificationHandler(forms *formstore.Store, copier *FormCopier, opts ...HandlerOption) *ModificationHandler {
	h := &ModificationHandler{
		forms:      forms,
		copier:     copier,
		now:        time.Now,
		rowLocking: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle validates moving form formID to desired and applies the resulting
// effect:
//
//   - publishing an unpublished form archives its published previous
//     versions and hands their plain code to the form;
//   - editing a published form forks it into a new EDITING version;
//   - anything else is a plain edit and writes nothing.
//
// Guards run before any write.
func (h *ModificationHandler) Handle(ctx context.Context, formID int64, desired domain.FormAttributes) (*ModificationResult, error) {
	if !desired.Status.IsValid() {
		return nil, apperrors.Validation(apperrors.CodeFormStatusInvalid,
			fmt.Sprintf("unknown form status %d", desired.Status))
	}

	var result *ModificationResult
	err := h.forms.InTx(ctx, func(ctx context.Context) error {
		current, err := h.load(ctx, formID)
		if err != nil {
			return err
		}
		if !current.Status.IsValid() {
			return apperrors.Validation(apperrors.CodeFormStatusInvalid,
				fmt.Sprintf("form %d has unknown status %d", formID, current.Status))
		}
		if err := canChangeForm(current); err != nil {
			return err
		}
		if err := canChangeStatus(current, desired.Status); err != nil {
			return err
		}

		switch {
		case current.Status == domain.StatusPublished:
			result, err = h.fork(ctx, current, desired)
		case desired.Status == domain.StatusPublished:
			result, err = h.publish(ctx, current, desired)
		default:
			result = &ModificationResult{Effect: EffectNone, FormID: current.ID, Fields: desired}
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	h.metrics.Transition(string(result.Effect))
	h.metrics.Archived(len(result.ArchivedIDs))
	return result, nil
}

func (h *ModificationHandler) load(ctx context.Context, id int64) (*domain.Form, error) {
	if h.rowLocking {
		return h.forms.GetForUpdate(ctx, id)
	}
	return h.forms.Get(ctx, id)
}

func canChangeForm(current *domain.Form) error {
	if current.IsDeleted {
		return apperrors.ErrFormNotFound(current.ID)
	}
	if current.Status == domain.StatusArchived {
		return apperrors.ErrFormArchivedImmutable(current.ID)
	}
	return nil
}

func canChangeStatus(current *domain.Form, desired domain.Status) error {
	switch {
	case current.Status == desired:
		return nil
	case desired == domain.StatusArchived:
		return apperrors.ErrFormArchiveForbidden()
	case current.Status == domain.StatusPublished:
		return apperrors.ErrFormPublishedStatusImmutable(current.ID)
	}
	return nil
}

// publish archives every published form in current's version chain under a
// timestamped code and moves the last vacated plain code onto current.
func (h *ModificationHandler) publish(ctx context.Context, current *domain.Form, desired domain.FormAttributes) (*ModificationResult, error) {
	result := &ModificationResult{Effect: EffectPublish, FormID: current.ID, Fields: desired}

	previous, err := h.forms.ListByIDsAndStatus(ctx, current.PreviousVersions, domain.StatusPublished)
	if err != nil {
		return nil, publishFailed(err, current.ID)
	}

	var (
		vacated      string
		vacatedXMLID *string
	)
	for _, p := range previous {
		archive := domain.FormPatch{
			Code:   domain.Ptr(domain.TimestampedCode(p.DateCreate, p.Code)),
			Status: domain.Ptr(domain.StatusArchived),
		}
		if p.XMLID != nil {
			archive.XMLID = domain.Ptr("")
			vacatedXMLID = p.XMLID
		}
		if _, err := h.forms.Update(ctx, p.ID, archive); err != nil {
			return nil, publishFailed(err, current.ID)
		}
		result.ArchivedIDs = append(result.ArchivedIDs, p.ID)
		vacated = p.Code
	}
	if vacated == "" {
		return result, nil
	}

	// The published form takes over the plain code and the external id.
	reclaim := domain.FormPatch{Code: &vacated, XMLID: vacatedXMLID}
	if _, err := h.forms.Update(ctx, current.ID, reclaim); err != nil {
		return nil, publishFailed(err, current.ID)
	}
	result.Fields = reclaim.ApplyTo(result.Fields)

	logger.Info("previous form versions archived",
		zap.Int64("form_id", current.ID),
		zap.Int64s("archived_ids", result.ArchivedIDs),
		zap.String("code", vacated),
	)
	return result, nil
}

// fork copies published form current into a new EDITING version that
// remembers current in its version chain.
func (h *ModificationHandler) fork(ctx context.Context, current *domain.Form, desired domain.FormAttributes) (*ModificationResult, error) {
	now := h.now().UTC()
	chain := current.PreviousVersions.Append(current.ID)
	overrides := domain.FormPatch{
		Code:             domain.Ptr(domain.TimestampedCode(now, current.Code)),
		XMLID:            domain.Ptr(""),
		Status:           domain.Ptr(domain.StatusEditing),
		PreviousVersions: &chain,
		DateCreate:       &now,
	}

	copied, err := h.copier.CopyForm(ctx, current.ID, overrides)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindOf(err), apperrors.CodeFormCopyFailed,
			fmt.Sprintf("fork form %d", current.ID))
	}

	logger.Info("published form forked",
		zap.Int64("form_id", current.ID),
		zap.Int64("fork_id", copied.ID),
	)
	return &ModificationResult{
		Effect:   EffectFork,
		FormID:   copied.ID,
		SourceID: current.ID,
		Fields:   overrides.ApplyTo(desired),
	}, nil
}

func publishFailed(err error, id int64) error {
	return apperrors.Wrap(err, apperrors.KindOf(err), apperrors.CodeFormPublishFailed,
		fmt.Sprintf("publish form %d", id))
}
