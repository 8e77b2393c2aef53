package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Transition("fork")
	m.Transition("fork")
	m.Archived(2)
	m.Archived(0)
	m.SyncFailure("create")
	m.CacheLookup(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("fork")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.archived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncFailures.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition("none")
		m.Archived(1)
		m.SyncFailure("update")
		m.SyncRepair("resynced")
		m.Submission("ok")
		m.CacheLookup(false)
		m.PoolTask("sync", "submitted")
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.Submission("accepted")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `formbuilder_form_submissions_total{result="accepted"} 1`)
}
