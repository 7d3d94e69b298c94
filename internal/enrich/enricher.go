// Package enrich fetches illustrative images for conversation turns through
// a two-level cache: a process-wide TTL cache shared across sessions, and a
// per-session dedup set that prevents re-dispatching a query the session has
// already asked for.
//
// Image enrichment is best-effort end to end: an upstream failure degrades
// to an empty result, never an error to the caller.
package enrich

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/studyloop/studyloop/internal/observe"
	"github.com/studyloop/studyloop/pkg/provider/imagesearch"
)

// Enricher resolves a composed query to at most MaxResults images via the
// TTL cache or one upstream search call. Concurrent requests for the same
// key share a single in-flight upstream call.
//
// Safe for concurrent use; one Enricher is shared by all sessions.
type Enricher struct {
	provider   imagesearch.Provider
	cache      *TTLCache
	maxResults int
	metrics    *observe.Metrics
	flight     singleflight.Group
}

// NewEnricher creates an Enricher. maxResults caps both the upstream request
// and the stored result set; non-positive values default to 3. metrics may
// be nil, in which case upstream failures are logged but not counted.
func NewEnricher(provider imagesearch.Provider, cache *TTLCache, maxResults int, metrics *observe.Metrics) *Enricher {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Enricher{
		provider:   provider,
		cache:      cache,
		maxResults: maxResults,
		metrics:    metrics,
	}
}

// FetchImages returns images for the composed query. cached is true when the
// result was served from the TTL cache without an upstream call.
//
// On a miss, exactly one upstream call per key is in flight at a time:
// duplicate concurrent callers wait on the same call and share its result
// (they report cached=false — they shared the flight, not the cache). The
// shared call runs detached from any single caller's cancellation, so one
// cancelled request cannot poison the result for its fellow waiters or the
// cache.
//
// Upstream failure or an empty upstream payload yields an empty slice and no
// error.
func (e *Enricher) FetchImages(ctx context.Context, query string) (images []imagesearch.Image, cached bool) {
	if imgs, ok := e.cache.Get(query); ok {
		return imgs, true
	}

	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := e.flight.Do(query, func() (any, error) {
		imgs, err := e.provider.Search(flightCtx, query, e.maxResults)
		if err != nil {
			return nil, err
		}
		if len(imgs) > e.maxResults {
			imgs = imgs[:e.maxResults]
		}
		e.cache.Put(query, imgs)
		return imgs, nil
	})
	if err != nil {
		slog.Warn("image search failed; serving empty result", "err", err)
		if e.metrics != nil {
			e.metrics.UpstreamErrors.Add(ctx, 1,
				metric.WithAttributes(attribute.String("upstream", "image_search")))
		}
		return []imagesearch.Image{}, false
	}
	return v.([]imagesearch.Image), false
}
