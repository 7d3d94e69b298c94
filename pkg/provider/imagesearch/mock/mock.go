// Package mock provides a test double for the imagesearch.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/studyloop/studyloop/pkg/provider/imagesearch"
)

// SearchCall records a single invocation of Search.
type SearchCall struct {
	// Query is the query string passed to Search.
	Query string
	// Limit is the limit passed to Search.
	Limit int
}

// Provider is a mock implementation of imagesearch.Provider.
// Zero values cause Search to return an empty slice and nil error.
type Provider struct {
	mu sync.Mutex

	// Images is returned by Search.
	Images []imagesearch.Image

	// Err, if non-nil, is returned as the error from Search.
	Err error

	// Delay, if non-nil, is closed by the test to release blocked Search
	// calls. Used to exercise in-flight deduplication.
	Delay chan struct{}

	// SearchCalls records every invocation of Search in order.
	SearchCalls []SearchCall
}

var _ imagesearch.Provider = (*Provider)(nil)

// Search implements imagesearch.Provider.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]imagesearch.Image, error) {
	p.mu.Lock()
	p.SearchCalls = append(p.SearchCalls, SearchCall{Query: query, Limit: limit})
	delay := p.Delay
	p.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([]imagesearch.Image, len(p.Images))
	copy(out, p.Images)
	return out, nil
}

// CallCount returns the number of Search invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SearchCalls)
}
