package resilience

import (
	"context"

	"github.com/studyloop/studyloop/pkg/provider/imagesearch"
)

// SearchGuard is an [imagesearch.Provider] decorator that runs every Search
// call through a [CircuitBreaker]. While the breaker is open, Search returns
// [ErrCircuitOpen] without contacting the upstream.
type SearchGuard struct {
	inner   imagesearch.Provider
	breaker *CircuitBreaker
}

// NewSearchGuard wraps inner with the given breaker.
func NewSearchGuard(inner imagesearch.Provider, breaker *CircuitBreaker) *SearchGuard {
	return &SearchGuard{inner: inner, breaker: breaker}
}

// Search implements [imagesearch.Provider].
func (g *SearchGuard) Search(ctx context.Context, query string, limit int) ([]imagesearch.Image, error) {
	var images []imagesearch.Image
	err := g.breaker.Execute(func() error {
		var innerErr error
		images, innerErr = g.inner.Search(ctx, query, limit)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}
