// Package observe provides application-wide observability primitives for
// studyloop: OpenTelemetry metrics, tracing, structured logging helpers, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Tests should use [NewMetrics]
// with a custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all studyloop metrics.
const meterName = "github.com/studyloop/studyloop"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline operation ---

	// SummaryDuration tracks note summarization latency (per model call).
	SummaryDuration metric.Float64Histogram

	// QuizDuration tracks quiz generation latency.
	QuizDuration metric.Float64Histogram

	// ImageSearchDuration tracks image search latency, including cache hits.
	ImageSearchDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// ImageSearchCacheHits counts TTL-cache-served image responses.
	ImageSearchCacheHits metric.Int64Counter

	// ImageSearchCacheMisses counts image requests that went upstream.
	ImageSearchCacheMisses metric.Int64Counter

	// UpstreamErrors counts failed external calls. Use with attribute:
	//   attribute.String("upstream", "llm"|"image_search")
	UpstreamErrors metric.Int64Counter

	// TurnsSegmented counts conversation turns closed by live sessions.
	TurnsSegmented metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live tutoring sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// interactive model and search calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SummaryDuration, err = m.Float64Histogram("studyloop.summary.duration",
		metric.WithDescription("Latency of note summarization model calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QuizDuration, err = m.Float64Histogram("studyloop.quiz.duration",
		metric.WithDescription("Latency of quiz generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ImageSearchDuration, err = m.Float64Histogram("studyloop.image_search.duration",
		metric.WithDescription("Latency of image search, cache hits included."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("studyloop.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ImageSearchCacheHits, err = m.Int64Counter("studyloop.image_search.cache_hits",
		metric.WithDescription("Image responses served from the TTL cache."),
	); err != nil {
		return nil, err
	}
	if met.ImageSearchCacheMisses, err = m.Int64Counter("studyloop.image_search.cache_misses",
		metric.WithDescription("Image requests that required an upstream call."),
	); err != nil {
		return nil, err
	}
	if met.UpstreamErrors, err = m.Int64Counter("studyloop.upstream.errors",
		metric.WithDescription("Failed external provider calls."),
	); err != nil {
		return nil, err
	}
	if met.TurnsSegmented, err = m.Int64Counter("studyloop.turns.segmented",
		metric.WithDescription("Conversation turns closed by live sessions."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("studyloop.sessions.active",
		metric.WithDescription("Live tutoring sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}
