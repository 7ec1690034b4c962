package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-formblocks/pkg/metrics"
)

func TestRecorder_Counts(t *testing.T) {
	rec := metrics.New()
	rec.BackendCall("getprofile", "ok", 20*time.Millisecond)
	rec.BackendCall("getprofile", "unauthorized", time.Millisecond)
	rec.FormRendered("authenticated", "ok")
	rec.Submission("submit", "ok")

	count, err := testutil.GatherAndCount(rec.Registry(), "formblocks_backend_calls_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two label sets, got %d", count)
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var rec *metrics.Recorder
	rec.BackendCall("x", "ok", 0)
	rec.FormRendered("x", "ok")
	rec.Submission("x", "ok")
	if rec.Registry() != nil {
		t.Fatalf("nil recorder should have no registry")
	}
}

func TestRecorder_Handler(t *testing.T) {
	rec := metrics.New()
	rec.FormRendered("anonymous", "error")

	res := httptest.NewRecorder()
	rec.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `formblocks_forms_rendered_total{result="error",variant="anonymous"} 1`) {
		t.Fatalf("missing counter in exposition:\n%s", res.Body.String())
	}
}
