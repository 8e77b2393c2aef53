package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc, err := Load()
	require.NoError(t, err)

	for _, path := range []string{
		"/forms",
		"/forms/{id}",
		"/forms/{id}/copy",
		"/forms/{id}/fields",
		"/public/forms/{id}/results",
	} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}
	assert.Contains(t, doc.Components.Schemas, "CreateFormRequest")
}
