package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/passvault/passvault/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	rec := metrics.NewInMemory()
	rec.IncRegistration()
	rec.IncLogin(metrics.LoginSuccess)
	rec.IncLogin(metrics.LoginFailed)
	rec.IncLogin(metrics.LoginFailed)
	rec.IncEntryCreated()
	rec.ObserveVaultListDuration(1500 * time.Millisecond)

	h := NewMetricsHandler(rec)
	w := httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected Content-Type: %s", ct)
	}

	body := w.Body.String()
	for _, line := range []string{
		"passvault_registrations_total 1",
		`passvault_logins_total{status="success"} 1`,
		`passvault_logins_total{status="failed"} 2`,
		`passvault_entries_total{op="create"} 1`,
		"passvault_vault_list_duration_seconds_count 1",
		"passvault_vault_list_duration_seconds_sum 1.5",
		"go_goroutines ",
	} {
		if !strings.Contains(body, line) {
			t.Errorf("metrics output missing %q\n%s", line, body)
		}
	}
}

func TestSnapshotCollector(t *testing.T) {
	rec := metrics.NewInMemory()
	rec.IncSessionExpired()
	rec.IncDecryptFailure()
	rec.IncDecryptFailure()

	c := newSnapshotCollector(rec)
	if n := testutil.CollectAndCount(c); n != 10 {
		t.Errorf("CollectAndCount() = %d, want 10", n)
	}

	want := `
# HELP passvault_decrypt_failures_total Stored secrets that failed to decrypt.
# TYPE passvault_decrypt_failures_total counter
passvault_decrypt_failures_total 2
# HELP passvault_sessions_expired_total Sessions ended by the idle timeout.
# TYPE passvault_sessions_expired_total counter
passvault_sessions_expired_total 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want),
		"passvault_decrypt_failures_total", "passvault_sessions_expired_total"); err != nil {
		t.Error(err)
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	h := NewMetricsHandler(nil)
	w := httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}
