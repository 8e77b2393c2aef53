// Package metrics exposes the form lifecycle counters.
//
// All methods are safe on a nil *Metrics so that stores and services can be
// built without a registry in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "formbuilder"

type Metrics struct {
	transitions   *prometheus.CounterVec
	archived      prometheus.Counter
	syncFailures  *prometheus.CounterVec
	syncRepaired  *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	poolSubmitted *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_transitions_total",
			Help:      "Form modifications handled, by effect (none, publish, fork).",
		}, []string{"effect"}),
		archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forms_archived_total",
			Help:      "Earlier versions archived by a publish.",
		}),
		syncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_sync_failures_total",
			Help:      "Support record writes that failed and left the form unsynced.",
		}, []string{"operation"}),
		syncRepaired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_sync_repairs_total",
			Help:      "Unsynced forms processed by the sync job, by result.",
		}, []string{"result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_submissions_total",
			Help:      "Public form submissions, by result.",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_definition_cache_lookups_total",
			Help:      "Published form definition cache lookups, by outcome.",
		}, []string{"outcome"}),
		poolSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_pool_tasks_total",
			Help:      "Tasks submitted to the worker pools, by pool and outcome.",
		}, []string{"pool", "outcome"}),
	}

	for _, c := range []prometheus.Collector{
		m.transitions, m.archived, m.syncFailures, m.syncRepaired,
		m.submissions, m.cacheLookups, m.poolSubmitted,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Transition(effect string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(effect).Inc()
}

func (m *Metrics) Archived(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.archived.Add(float64(n))
}

func (m *Metrics) SyncFailure(operation string) {
	if m == nil {
		return
	}
	m.syncFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) SyncRepair(result string) {
	if m == nil {
		return
	}
	m.syncRepaired.WithLabelValues(result).Inc()
}

func (m *Metrics) Submission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PoolTask(pool, outcome string) {
	if m == nil {
		return
	}
	m.poolSubmitted.WithLabelValues(pool, outcome).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
