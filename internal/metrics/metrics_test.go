package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルに一致するメトリクスを返す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	if c := NewCollector(prometheus.NewRegistry()); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordVerification_CountsByProviderAndResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordVerification("google", "ok")
	c.RecordVerification("google", "ok")
	c.RecordVerification("google", "TOKEN_EXPIRED")
	c.RecordVerification("kakao", "ok")

	m := findMetric(t, reg, "safeai_token_verifications_total", map[string]string{"provider": "google", "result": "ok"})
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("google/ok = %v, want 2", v)
	}
	m = findMetric(t, reg, "safeai_token_verifications_total", map[string]string{"provider": "google", "result": "TOKEN_EXPIRED"})
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("google/TOKEN_EXPIRED = %v, want 1", v)
	}
	m = findMetric(t, reg, "safeai_token_verifications_total", map[string]string{"provider": "kakao", "result": "ok"})
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("kakao/ok = %v, want 1", v)
	}
}

func TestRecordUpsert_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpsert("ok")
	c.RecordUpsert("STORE_UNAVAILABLE")

	m := findMetric(t, reg, "safeai_profile_upserts_total", map[string]string{"result": "ok"})
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("upserts ok = %v, want 1", v)
	}
}

func TestRecordUpsertLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpsertLatency(150 * time.Millisecond)
	c.RecordUpsertLatency(2 * time.Second)

	m := findMetric(t, reg, "safeai_profile_upsert_latency_seconds", nil)
	if got := m.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
	if got := m.GetHistogram().GetSampleSum(); got < 2.14 || got > 2.16 {
		t.Errorf("sample sum = %v, want ~2.15", got)
	}
}

func TestRecordHTTPStatus_LabelsStatusCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)
	c.RecordHTTPStatus(401)

	m := findMetric(t, reg, "safeai_http_status_total", map[string]string{"status_code": "401"})
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("401 count = %v, want 2", v)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordUpsert("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "safeai_profile_upserts_total") {
		t.Error("response should contain safeai_profile_upserts_total metric")
	}
}
