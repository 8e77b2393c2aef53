package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/fieldtype"
	"formbuilder.io/formbuilder/internal/metrics"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
	"formbuilder.io/formbuilder/internal/pkg/logger"
	"formbuilder.io/formbuilder/internal/repository/formstore"
	"formbuilder.io/formbuilder/internal/validator"
)

// ResultRepository stores form submissions.
type ResultRepository interface {
	InsertResult(ctx context.Context, result domain.Result) (*domain.Result, error)
}

// Submission is what a visitor sends for a form, keyed by field code.
// Multiple fields take a list of values.
type Submission struct {
	UserID *int64         `json:"user_id,omitempty"`
	Values map[string]any `json:"fields"`
}

const (
	defaultCacheSize = 256
	defaultCacheTTL  = time.Minute
)

// SubmissionService accepts results for active published forms.
type SubmissionService struct {
	forms      *formstore.Store
	fields     FieldRepository
	results    ResultRepository
	types      *fieldtype.Registry
	validators *validator.Registry
	metrics    *metrics.Metrics
	now        func() time.Time

	cacheSize int
	cacheTTL  time.Duration
	cache     *expirable.LRU[int64, *domain.FormDefinition]
}

type SubmissionOption func(*SubmissionService)

// WithDefinitionCache sizes the published form cache. A size of zero or
// less disables it.
func WithDefinitionCache(size int, ttl time.Duration) SubmissionOption {
	return func(s *SubmissionService) {
		s.cacheSize = size
		s.cacheTTL = ttl
	}
}

func WithSubmissionMetrics(m *metrics.Metrics) SubmissionOption {
	return func(s *SubmissionService) { s.metrics = m }
}

func WithSubmissionClock(now func() time.Time) SubmissionOption {
	return func(s *SubmissionService) { s.now = now }
}

func NewSubmissionService(
	forms *formstore.Store,
	fields FieldRepository,
	results ResultRepository,
	types *fieldtype.Registry,
	validators *validator.Registry,
	opts ...SubmissionOption,
) *SubmissionService {
	s := &SubmissionService{
		forms:      forms,
		fields:     fields,
		results:    results,
		types:      types,
		validators: validators,
		now:        time.Now,
		cacheSize:  defaultCacheSize,
		cacheTTL:   defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize > 0 {
		s.cache = expirable.NewLRU[int64, *domain.FormDefinition](s.cacheSize, nil, s.cacheTTL)
	}
	return s
}

// Definition returns form id with its active fields in display order. Only
// active published forms have one.
func (s *SubmissionService) Definition(ctx context.Context, id int64) (*domain.FormDefinition, error) {
	if s.cache != nil {
		if def, ok := s.cache.Get(id); ok {
			s.metrics.CacheLookup(true)
			return def, nil
		}
		s.metrics.CacheLookup(false)
	}

	form, err := s.forms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !form.Active || form.Status != domain.StatusPublished || form.IsDeleted {
		return nil, apperrors.NotFound(apperrors.CodeFormNotPublished,
			fmt.Sprintf("form %d is not published", id))
	}
	fields, err := s.fields.ListFields(ctx, id, true)
	if err != nil {
		return nil, apperrors.Persistence(err, apperrors.CodeFormPersistenceFailed,
			fmt.Sprintf("list fields of form %d", id))
	}

	def := &domain.FormDefinition{Form: *form, Fields: fields}
	if s.cache != nil {
		s.cache.Add(id, def)
	}
	return def, nil
}

// Invalidate drops the cached definition of form id.
func (s *SubmissionService) Invalidate(id int64) {
	if s.cache != nil {
		s.cache.Remove(id)
	}
}

// InvalidateOnEvent is an event handler that evicts the form an event is
// about.
func (s *SubmissionService) InvalidateOnEvent(_ context.Context, e *domain.DomainEvent) error {
	p, err := e.FormPayload()
	if err != nil {
		return err
	}
	s.Invalidate(p.FormID)
	return nil
}

// Submit validates sub against form id and stores it as one result.
//
// Empty values are dropped and the rest normalized by field type. Missing
// required fields, values a type rejects and validator failures are all
// reported together as INVALID_FIELDS.
func (s *SubmissionService) Submit(ctx context.Context, id int64, sub Submission) (*domain.Result, error) {
	def, err := s.Definition(ctx, id)
	if err != nil {
		s.metrics.Submission("rejected")
		return nil, err
	}

	values, fieldErrors := s.normalize(def, sub.Values)
	fieldErrors = append(fieldErrors, checkRequired(def, values)...)
	if len(fieldErrors) == 0 {
		fieldErrors = s.validate(ctx, def, values)
	}
	if len(fieldErrors) > 0 {
		s.metrics.Submission("rejected")
		return nil, apperrors.ErrInvalidFields(fieldErrors)
	}

	result := domain.Result{
		FormID:     id,
		UserID:     sub.UserID,
		DateCreate: s.now().UTC(),
	}
	for _, f := range def.Fields {
		for _, v := range values[f.Code] {
			result.Values = append(result.Values, domain.ResultValue{FieldID: f.ID, Value: v})
		}
	}

	stored, err := s.results.InsertResult(ctx, result)
	if err != nil {
		s.metrics.Submission("failed")
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrFormNotFound(id)
		}
		return nil, apperrors.Persistence(err, apperrors.CodeFormPersistenceFailed,
			fmt.Sprintf("store result of form %d", id))
	}

	s.metrics.Submission("accepted")
	logger.Debug("form result stored",
		zap.Int64("form_id", id),
		zap.Int64("result_id", stored.ID),
		zap.Int("values", len(stored.Values)),
	)
	return stored, nil
}

// normalize converts the submitted values of known fields. Unknown codes are
// ignored.
func (s *SubmissionService) normalize(def *domain.FormDefinition, raw map[string]any) (map[string][]string, []apperrors.FieldError) {
	out := map[string][]string{}
	var fieldErrors []apperrors.FieldError

	for _, f := range def.Fields {
		value, ok := raw[f.Code]
		if !ok || isEmpty(value) {
			continue
		}
		typ, err := s.types.Type(f.Type)
		if err != nil {
			fieldErrors = append(fieldErrors, apperrors.FieldError{Field: f.Code, Code: apperrors.CodeFieldTypeUnknown, Message: err.Error()})
			continue
		}

		items := []any{value}
		if list, isList := value.([]any); isList {
			if !f.Multiple && len(list) > 1 {
				fieldErrors = append(fieldErrors, apperrors.FieldError{Field: f.Code, Code: apperrors.CodeFieldInvalid, Message: "field takes a single value"})
				continue
			}
			items = list
		}

		for _, item := range items {
			if isEmpty(item) {
				continue
			}
			v, keep, err := typ.NormalizeFromRequest(item)
			if err != nil {
				fieldErrors = append(fieldErrors, apperrors.FieldError{Field: f.Code, Code: apperrors.CodeFieldInvalid, Message: err.Error()})
				break
			}
			if !keep {
				continue
			}
			if typ.SupportsEnum() && !hasEnum(f, v) {
				fieldErrors = append(fieldErrors, apperrors.FieldError{Field: f.Code, Code: apperrors.CodeFieldInvalid, Message: fmt.Sprintf("%q is not one of the field options", v)})
				break
			}
			out[f.Code] = append(out[f.Code], v)
		}
	}
	return out, fieldErrors
}

func checkRequired(def *domain.FormDefinition, values map[string][]string) []apperrors.FieldError {
	var fieldErrors []apperrors.FieldError
	for _, f := range def.Fields {
		if f.Required && len(values[f.Code]) == 0 {
			fieldErrors = append(fieldErrors, apperrors.FieldError{Field: f.Code, Code: apperrors.CodeFieldRequired, Message: "field is required"})
		}
	}
	return fieldErrors
}

// validate runs the validators of every field that has values. An unknown
// validator stops validation of that field.
func (s *SubmissionService) validate(ctx context.Context, def *domain.FormDefinition, values map[string][]string) []apperrors.FieldError {
	var fieldErrors []apperrors.FieldError
	for _, f := range def.Fields {
		vals := values[f.Code]
		if len(vals) == 0 {
			continue
		}
		for _, cfg := range f.Validators {
			v, err := s.validators.CreateFromSettings(cfg.Name, cfg.Settings)
			if err != nil {
				fieldErrors = append(fieldErrors, apperrors.FieldError{Field: f.Code, Code: apperrors.CodeValidatorUnknown, Message: err.Error()})
				break
			}
			res := v.Validate(ctx, def.Form.ID, f.ID, vals)
			for _, msg := range res.Errors {
				fieldErrors = append(fieldErrors, apperrors.FieldError{Field: f.Code, Code: apperrors.CodeFieldInvalid, Message: msg})
			}
		}
	}
	return fieldErrors
}

// hasEnum accepts either the enum value id or its value.
func hasEnum(f domain.Field, v string) bool {
	for _, e := range f.Enums {
		if strconv.FormatInt(e.ID, 10) == v || e.Value == v {
			return true
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		for _, item := range x {
			if !isEmpty(item) {
				return false
			}
		}
		return true
	}
	return false
}
