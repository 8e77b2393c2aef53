// Package validator holds the per-field value validators that can be
// attached to form fields.
package validator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
)

// Validator checks the submitted values of one field.
type Validator interface {
	Validate(ctx context.Context, formID, fieldID int64, values []string) Result
}

// Result collects the user facing messages of a failed validation.
type Result struct {
	Errors []string
}

func (r Result) Valid() bool { return len(r.Errors) == 0 }

func (r *Result) addf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Factory builds a Validator from its stored settings.
type Factory func(settings map[string]any) (Validator, error)

// Registry resolves validators by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in validators.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	for name, f := range builtInFactories() {
		_ = r.Register(name, f)
	}
	return r
}

// Register adds a factory under name. Duplicate names are rejected.
func (r *Registry) Register(name string, f Factory) error {
	name = normalizeName(name)
	if name == "" || f == nil {
		return fmt.Errorf("validator name and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("validator already registered: %s", name)
	}
	r.factories[name] = f
	return nil
}

// CreateFromSettings builds the validator registered as name.
func (r *Registry) CreateFromSettings(name string, settings map[string]any) (Validator, error) {
	r.mu.RLock()
	f, ok := r.factories[normalizeName(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.Validation(apperrors.CodeValidatorUnknown,
			fmt.Sprintf("unknown validator %q", name))
	}
	v, err := f(settings)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindValidationFailure, apperrors.CodeValidationFailed,
			fmt.Sprintf("invalid settings for validator %q", name))
	}
	return v, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}
