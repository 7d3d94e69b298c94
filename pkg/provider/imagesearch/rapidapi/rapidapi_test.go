package rapidapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

// ---- URL construction ----

func TestBuildURL_FixedParams(t *testing.T) {
	c, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw := c.buildURL("queue diagram", 3)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse built URL: %v", err)
	}

	q := u.Query()
	if got := q.Get("query"); got != "queue diagram" {
		t.Errorf("query = %q, want %q", got, "queue diagram")
	}
	if got := q.Get("limit"); got != "3" {
		t.Errorf("limit = %q, want 3", got)
	}
	for _, want := range [][2]string{
		{"size", "any"},
		{"safe_search", "off"},
		{"region", "us"},
	} {
		if got := q.Get(want[0]); got != want[1] {
			t.Errorf("%s = %q, want %q", want[0], got, want[1])
		}
	}
}

func TestBuildURL_TruncatesLongQueries(t *testing.T) {
	c, _ := New("test-key")

	long := strings.Repeat("x", 500)
	raw := c.buildURL(long, 3)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse built URL: %v", err)
	}
	if got := len(u.Query().Get("query")); got != maxQueryLen {
		t.Errorf("query length = %d, want %d", got, maxQueryLen)
	}
}

func TestBuildURL_Deterministic(t *testing.T) {
	c, _ := New("test-key")
	if a, b := c.buildURL("same", 3), c.buildURL("same", 3); a != b {
		t.Errorf("buildURL not deterministic: %q vs %q", a, b)
	}
}

// ---- Search ----

func TestSearch_MapsResults(t *testing.T) {
	var gotKey, gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-RapidAPI-Key")
		gotHost = r.Header.Get("X-RapidAPI-Host")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"url": "https://img.example/thumb1.png", "thumbnail_url": "https://img.example/full1.png", "title": "Queue diagram"},
				{"url": "https://img.example/thumb2.png", "thumbnail_url": "", "title": "FIFO"},
			},
		})
	}))
	defer srv.Close()

	c, err := New("test-key", WithBaseURL(srv.URL), WithHost("test-host"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	images, err := c.Search(context.Background(), "queue diagram", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotKey != "test-key" {
		t.Errorf("X-RapidAPI-Key = %q, want test-key", gotKey)
	}
	if gotHost != "test-host" {
		t.Errorf("X-RapidAPI-Host = %q, want test-host", gotHost)
	}

	if len(images) != 2 {
		t.Fatalf("got %d images, want 2", len(images))
	}
	// thumbnail_url is the high-res link; url is the preview.
	if images[0].Link != "https://img.example/full1.png" {
		t.Errorf("Link = %q", images[0].Link)
	}
	if images[0].Thumbnail != "https://img.example/thumb1.png" {
		t.Errorf("Thumbnail = %q", images[0].Thumbnail)
	}
	if images[0].Title != "Queue diagram" {
		t.Errorf("Title = %q", images[0].Title)
	}
	// Falls back to url when thumbnail_url is empty.
	if images[1].Link != "https://img.example/thumb2.png" {
		t.Errorf("fallback Link = %q", images[1].Link)
	}
}

func TestSearch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := New("test-key", WithBaseURL(srv.URL))
	if _, err := c.Search(context.Background(), "anything", 3); err == nil {
		t.Fatal("expected error for non-200 upstream response")
	}
}

func TestSearch_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := New("test-key", WithBaseURL(srv.URL))
	images, err := c.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("got %d images, want 0", len(images))
	}
}
