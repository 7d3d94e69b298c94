package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestSummaryDurationObservation(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.SummaryDuration.Record(context.Background(), 0.42)

	rm := collect(t, reader)
	md := findMetric(rm, "studyloop.summary.duration")
	if md == nil {
		t.Fatal("studyloop.summary.duration not found")
	}
	hist, ok := md.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", md.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("unexpected histogram data: %+v", hist.DataPoints)
	}
}

func TestCacheCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ImageSearchCacheHits.Add(ctx, 2)
	m.ImageSearchCacheMisses.Add(ctx, 1)

	rm := collect(t, reader)
	hits := findMetric(rm, "studyloop.image_search.cache_hits")
	if hits == nil {
		t.Fatal("cache_hits not found")
	}
	sum, ok := hits.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", hits.Data)
	}
	if sum.DataPoints[0].Value != 2 {
		t.Errorf("cache_hits = %d, want 2", sum.DataPoints[0].Value)
	}
}

func TestUpstreamErrorAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.UpstreamErrors.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("upstream", "image_search")))

	rm := collect(t, reader)
	md := findMetric(rm, "studyloop.upstream.errors")
	if md == nil {
		t.Fatal("upstream.errors not found")
	}
	sum := md.Data.(metricdata.Sum[int64])
	if got, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("upstream")); !ok || got.AsString() != "image_search" {
		t.Errorf("missing upstream attribute, got %v", sum.DataPoints[0].Attributes)
	}
}

func TestActiveSessionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	md := findMetric(rm, "studyloop.sessions.active")
	if md == nil {
		t.Fatal("sessions.active not found")
	}
	sum := md.Data.(metricdata.Sum[int64])
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("active sessions = %d, want 1", sum.DataPoints[0].Value)
	}
}
