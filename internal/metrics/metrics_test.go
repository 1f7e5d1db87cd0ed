package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}

	// Verify all metric fields are initialized
	if m.MatchRequestsTotal == nil {
		t.Error("MatchRequestsTotal is nil")
	}
	if m.MatchDurationSeconds == nil {
		t.Error("MatchDurationSeconds is nil")
	}
	if m.MatchResultCount == nil {
		t.Error("MatchResultCount is nil")
	}
	if m.EncodeRequestsTotal == nil {
		t.Error("EncodeRequestsTotal is nil")
	}
	if m.EncodeDurationSeconds == nil {
		t.Error("EncodeDurationSeconds is nil")
	}
	if m.HTTPErrorsTotal == nil {
		t.Error("HTTPErrorsTotal is nil")
	}
	if m.SnapshotModules == nil {
		t.Error("SnapshotModules is nil")
	}
	if m.SnapshotReloads == nil {
		t.Error("SnapshotReloads is nil")
	}
	if m.CatalogIntegrityIssues == nil {
		t.Error("CatalogIntegrityIssues is nil")
	}
	if m.ScraperRequestsTotal == nil {
		t.Error("ScraperRequestsTotal is nil")
	}
	if m.CacheHitsTotal == nil {
		t.Error("CacheHitsTotal is nil")
	}
}

func TestRecordMatch(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordMatch("success", 0.8, 10)
	m.RecordMatch("invalid", 0.001, 0)
	m.RecordMatch("encoder_error", 15.0, 0)

	if got := testutil.ToFloat64(m.MatchRequestsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.MatchRequestsTotal.WithLabelValues("invalid")); got != 1 {
		t.Errorf("invalid counter = %v, want 1", got)
	}
}

func TestRecordEncode(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordEncode("gemini", "success", 0.4)
	m.RecordEncode("gemini", "timeout", 15.0)
	m.RecordEncode("openai", "success", 0.3)

	if got := testutil.ToFloat64(m.EncodeRequestsTotal.WithLabelValues("gemini", "success")); got != 1 {
		t.Errorf("gemini success counter = %v, want 1", got)
	}
}

func TestRecordSnapshot(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordSnapshot(6432, 120)
	if got := testutil.ToFloat64(m.SnapshotModules); got != 6432 {
		t.Errorf("SnapshotModules = %v, want 6432", got)
	}

	m.RecordSnapshotReload("success")
	m.RecordSnapshotReload("error")
	if got := testutil.ToFloat64(m.SnapshotReloads.WithLabelValues("error")); got != 1 {
		t.Errorf("reload error counter = %v, want 1", got)
	}
}

func TestRecordScraperAndCache(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordScraperRequest("module", "success", 1.5)
	m.RecordScraperRequest("index", "timeout", 30.0)
	m.RecordCacheHit("gemini-embedding-001")
	m.RecordCacheMiss("gemini-embedding-001")
	m.RecordHTTPError("validation", "/api/match")
	m.RecordCatalogIntegrityIssue("duplicate_slug")
}
