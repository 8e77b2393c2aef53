package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/repository/sqlc"
)

type fakeWriter struct {
	rows []sqlc.InsertAuditLogParams
	err  error
}

func (w *fakeWriter) InsertAuditLog(_ context.Context, arg sqlc.InsertAuditLogParams) error {
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, arg)
	return nil
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, "form.created", ActionFor(domain.EventFormCreated))
	assert.Equal(t, "form.sync_degraded", ActionFor(domain.EventFormSyncDegraded))
	assert.Equal(t, "custom", ActionFor(domain.EventType("CUSTOM")))
}

func TestHandleEvent(t *testing.T) {
	w := &fakeWriter{}
	l := NewLogger(w)

	e, err := domain.NewFormEvent(domain.EventFormForked, "admin", domain.FormEventPayload{FormID: 12, SourceID: 3})
	require.NoError(t, err)
	require.NoError(t, l.HandleEvent(context.Background(), e))

	require.Len(t, w.rows, 1)
	row := w.rows[0]
	assert.True(t, strings.HasPrefix(row.ID, "audit-"))
	assert.Equal(t, "form.forked", row.Action)
	assert.Equal(t, int64(12), row.FormID)
	assert.Equal(t, "admin", row.Actor)

	var details map[string]any
	require.NoError(t, json.Unmarshal(row.Details, &details))
	assert.Equal(t, 3.0, details["source_id"])
}

func TestLogAction(t *testing.T) {
	w := &fakeWriter{}
	l := NewLogger(w)

	require.NoError(t, l.LogAction(context.Background(), "form.seeded", 1, domain.SystemActor, nil))
	assert.Equal(t, []byte("{}"), w.rows[0].Details)

	w.err = errors.New("connection reset")
	assert.Error(t, l.LogAction(context.Background(), "form.seeded", 1, domain.SystemActor, map[string]any{"file": "forms.yaml"}))
}
