// Package fieldtype knows how each kind of form field turns a raw request
// value into the string stored in form_result_value.
package fieldtype

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
)

// Type describes one field kind.
type Type interface {
	// Name is the key stored in form_field.type.
	Name() string
	// SupportsEnum reports whether fields of this type carry enum values.
	SupportsEnum() bool
	// NormalizeFromRequest converts one submitted value. A type that stores
	// nothing returns ("", false, nil).
	NormalizeFromRequest(raw any) (value string, keep bool, err error)
}

// Registry resolves field types by name.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry returns a registry holding the built-in types.
func NewRegistry() *Registry {
	r := &Registry{types: map[string]Type{}}
	for _, t := range builtInTypes() {
		_ = r.Register(t)
	}
	return r
}

// Register adds t. Duplicate names are rejected.
func (r *Registry) Register(t Type) error {
	if t == nil {
		return fmt.Errorf("field type is nil")
	}
	name := normalizeName(t.Name())
	if name == "" {
		return fmt.Errorf("field type name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		return fmt.Errorf("field type already registered: %s", name)
	}
	r.types[name] = t
	return nil
}

// Type returns the type registered under name.
func (r *Registry) Type(name string) (Type, error) {
	r.mu.RLock()
	t, ok := r.types[normalizeName(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.Validation(apperrors.CodeFieldTypeUnknown,
			fmt.Sprintf("unknown field type %q", name))
	}
	return t, nil
}

// Names lists the registered type names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}
