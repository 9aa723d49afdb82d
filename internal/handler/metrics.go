package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/passvault/passvault/internal/metrics"
)

// MetricsHandler serves the in-memory counters in Prometheus format,
// together with Go runtime and process metrics.
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler registers a collector over snapshotter on a private
// registry. A nil snapshotter disables the endpoint.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	if snapshotter == nil {
		return &MetricsHandler{}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		newSnapshotCollector(snapshotter),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &MetricsHandler{handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
}

// Metrics returns metrics in Prometheus exposition format.
// GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.handler == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	h.handler.ServeHTTP(w, r)
}

// snapshotCollector turns a metrics.Snapshot into const metrics on every
// scrape.
type snapshotCollector struct {
	src metrics.Snapshotter

	registrations   *prometheus.Desc
	logins          *prometheus.Desc
	sessionsExpired *prometheus.Desc
	entries         *prometheus.Desc
	decryptFailures *prometheus.Desc
	listDuration    *prometheus.Desc
}

func newSnapshotCollector(src metrics.Snapshotter) *snapshotCollector {
	return &snapshotCollector{
		src:             src,
		registrations:   prometheus.NewDesc("passvault_registrations_total", "Accounts created.", nil, nil),
		logins:          prometheus.NewDesc("passvault_logins_total", "Login attempts by outcome.", []string{"status"}, nil),
		sessionsExpired: prometheus.NewDesc("passvault_sessions_expired_total", "Sessions ended by the idle timeout.", nil, nil),
		entries:         prometheus.NewDesc("passvault_entries_total", "Vault entry mutations by operation.", []string{"op"}, nil),
		decryptFailures: prometheus.NewDesc("passvault_decrypt_failures_total", "Stored secrets that failed to decrypt.", nil, nil),
		listDuration:    prometheus.NewDesc("passvault_vault_list_duration_seconds", "Time spent listing entries.", nil, nil),
	}
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.registrations
	ch <- c.logins
	ch <- c.sessionsExpired
	ch <- c.entries
	ch <- c.decryptFailures
	ch <- c.listDuration
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Snapshot()

	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.registrations, s.Registrations)
	counter(c.logins, s.LoginsSucceeded, metrics.LoginSuccess)
	counter(c.logins, s.LoginsFailed, metrics.LoginFailed)
	counter(c.logins, s.LoginsRateLimited, metrics.LoginRateLimited)
	counter(c.sessionsExpired, s.SessionsExpired)
	counter(c.entries, s.EntriesCreated, "create")
	counter(c.entries, s.EntriesUpdated, "update")
	counter(c.entries, s.EntriesDeleted, "delete")
	counter(c.decryptFailures, s.DecryptFailures)

	ch <- prometheus.MustNewConstSummary(c.listDuration,
		s.VaultListCount, float64(s.VaultListTotalNanos)/1e9, nil)
}
