package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveDocument("upload", "completed", 7, 2*time.Second)
	m.ObserveSkipped(1, 2)
	m.ObservePolls(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`entrysummary_documents_total{source="upload",status="completed"} 1`,
		`entrysummary_rows_total 7`,
		`entrysummary_line_items_skipped_total{reason="noise"} 2`,
		`entrysummary_extraction_poll_attempts_count 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveDocument("cli", "failed", 0, time.Second)
	m.ObserveSkipped(1, 1)
	m.ObservePolls(1)
	if m.Registry() != nil {
		t.Fatalf("nil metrics should have nil registry")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", rec.Code)
	}
}
