// Package imagesearch defines the Provider interface for external image
// search backends.
//
// A provider wraps a remote search API and returns illustrative images for a
// text query. Image enrichment is best-effort throughout the pipeline, so
// callers are expected to degrade gracefully when Search fails.
//
// Implementations must be safe for concurrent use.
package imagesearch

import "context"

// Image is a single search result.
type Image struct {
	// Link is the high-resolution image URL.
	Link string `json:"link"`

	// Thumbnail is the preview-sized image URL.
	Thumbnail string `json:"thumbnail"`

	// Title is the human-readable title of the result.
	Title string `json:"title"`
}

// Provider is the abstraction over any image search backend.
type Provider interface {
	// Search returns up to limit images for query. The returned slice may be
	// empty when the backend has no results; that is not an error.
	Search(ctx context.Context, query string, limit int) ([]Image, error)
}
