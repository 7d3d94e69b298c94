// Package rapidapi provides an imagesearch.Provider backed by the RapidAPI
// Real-Time Image Search endpoint.
package rapidapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/studyloop/studyloop/pkg/provider/imagesearch"
)

const (
	defaultBaseURL = "https://real-time-image-search.p.rapidapi.com/search"
	defaultHost    = "real-time-image-search.p.rapidapi.com"

	// maxQueryLen caps the raw query length before URL encoding. The upstream
	// endpoint rejects overly long queries, and anything past 100 characters
	// adds no recall.
	maxQueryLen = 100
)

// fixedParams are appended to every search request. Wildcard filters keep
// recall wide; safe search is handled by the upstream tutoring prompt, not
// the image layer.
var fixedParams = [][2]string{
	{"size", "any"},
	{"color", "any"},
	{"type", "any"},
	{"time", "any"},
	{"usage_rights", "any"},
	{"file_type", "any"},
	{"aspect_ratio", "any"},
	{"safe_search", "off"},
	{"region", "us"},
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL overrides the default search endpoint URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHost overrides the X-RapidAPI-Host header value.
func WithHost(host string) Option {
	return func(c *Client) {
		c.host = host
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client implements imagesearch.Provider against the RapidAPI
// Real-Time Image Search API.
type Client struct {
	apiKey     string
	baseURL    string
	host       string
	httpClient *http.Client
}

// New creates a Client. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("rapidapi: apiKey must not be empty")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		host:       defaultHost,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// searchResponse mirrors the upstream JSON envelope.
type searchResponse struct {
	Data []searchResult `json:"data"`
}

// searchResult is a single upstream result. ThumbnailURL carries the
// high-resolution rendition; URL is the preview.
type searchResult struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Title        string `json:"title"`
}

// Search implements imagesearch.Provider. It issues a single GET request with
// the API key headers and maps upstream results into imagesearch.Image values.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]imagesearch.Image, error) {
	reqURL := c.buildURL(query, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rapidapi: build request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rapidapi: search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rapidapi: search returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("rapidapi: decode response: %w", err)
	}

	images := make([]imagesearch.Image, 0, len(payload.Data))
	for _, item := range payload.Data {
		link := item.ThumbnailURL
		if link == "" {
			link = item.URL
		}
		images = append(images, imagesearch.Image{
			Link:      link,
			Thumbnail: item.URL,
			Title:     item.Title,
		})
	}
	return images, nil
}

// buildURL constructs the deterministic request URL: base + urlencoded query
// + limit + fixed wildcard filters.
func (c *Client) buildURL(query string, limit int) string {
	q := strings.TrimSpace(query)
	if len(q) > maxQueryLen {
		q = q[:maxQueryLen]
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("limit", strconv.Itoa(limit))
	for _, p := range fixedParams {
		params.Set(p[0], p[1])
	}
	return c.baseURL + "?" + params.Encode()
}
