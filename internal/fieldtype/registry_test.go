package fieldtype

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
)

func TestRegistry_BuiltIns(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"boolean", "date", "email", "list", "number", "string", "text", "text_block"}, r.Names())

	list, err := r.Type(" LIST ")
	require.NoError(t, err)
	assert.True(t, list.SupportsEnum())

	_, err = r.Type("file")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeFieldTypeUnknown, appErr.Code)
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(stringType{name: " "}))
	assert.Error(t, r.Register(stringType{name: "String"}))
	require.NoError(t, r.Register(stringType{name: "phone"}))

	_, err := r.Type("phone")
	assert.NoError(t, err)
}

func TestNormalizeFromRequest(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		typ      string
		raw      any
		want     string
		wantKeep bool
		wantErr  bool
	}{
		{String, "  Jane   Doe ", "Jane Doe", true, false},
		{String, "   ", "", false, false},
		{Text, " line one\nline two ", "line one\nline two", true, false},
		{Number, "12,5", "12.5", true, false},
		{Number, float64(3), "3", true, false},
		{Number, json.Number("42"), "42", true, false},
		{Number, "abc", "", false, true},
		{Number, []any{1}, "", false, true},
		{Boolean, true, "Y", true, false},
		{Boolean, "on", "Y", true, false},
		{Boolean, "N", "N", true, false},
		{Boolean, "maybe", "", false, true},
		{List, float64(17), "17", true, false},
		{Email, " a@b.io ", "a@b.io", true, false},
		{Date, "31.12.2025", "2025-12-31", true, false},
		{Date, "2025-01-02", "2025-01-02", true, false},
		{Date, "tomorrow", "", false, true},
		{TextBlock, "anything", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			typ, err := r.Type(tt.typ)
			require.NoError(t, err)

			got, keep, err := typ.NormalizeFromRequest(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantKeep, keep)
		})
	}
}
