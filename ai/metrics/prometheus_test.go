package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, e *PrometheusExporter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	return string(body)
}

func TestPrometheusExporter(t *testing.T) {
	e := NewPrometheusExporter(DefaultConfig())

	e.RecordChatRequest("product_inquiry", "miss", 120*time.Millisecond)
	e.RecordChatRequest("product_inquiry", "exact", 2*time.Millisecond)
	e.RecordCacheLookup("miss")
	e.RecordCacheLookup("exact")
	e.RecordFallback()
	e.RecordCatalogReload(map[string]int{"product": 12, "policy_section": 4})
	e.SetThresholds(0.6, 0.75)

	body := scrape(t, e)

	for _, want := range []string{
		`shoptalk_ai_chat_requests_total{cache="miss",intent="product_inquiry"} 1`,
		`shoptalk_ai_chat_requests_total{cache="exact",intent="product_inquiry"} 1`,
		`shoptalk_ai_cache_lookups_total{outcome="exact"} 1`,
		`shoptalk_ai_llm_fallbacks_total 1`,
		`shoptalk_ai_catalog_records{kind="product"} 12`,
		`shoptalk_ai_catalog_reloads_total 1`,
		`shoptalk_ai_match_threshold 0.6`,
		`shoptalk_ai_cache_similarity_threshold 0.75`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	if !strings.Contains(body, "shoptalk_ai_chat_latency_seconds_bucket") {
		t.Error("latency histogram not exported")
	}
}

func TestPrometheusExporter_CustomBuckets(t *testing.T) {
	e := NewPrometheusExporter(Config{LatencyBuckets: []float64{0.1, 1}})
	e.RecordChatRequest("general_chat", "miss", 500*time.Millisecond)

	body := scrape(t, e)
	if !strings.Contains(body, `le="0.1"`) || !strings.Contains(body, `le="1"`) {
		t.Error("custom buckets not applied")
	}
}
