package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/studyloop/studyloop/internal/enrich"
	"github.com/studyloop/studyloop/internal/notes"
	"github.com/studyloop/studyloop/internal/observe"
	"github.com/studyloop/studyloop/internal/quiz"
	"github.com/studyloop/studyloop/internal/session"
	"github.com/studyloop/studyloop/pkg/provider/imagesearch"
	imagesearchmock "github.com/studyloop/studyloop/pkg/provider/imagesearch/mock"
	"github.com/studyloop/studyloop/pkg/provider/llm"
	llmmock "github.com/studyloop/studyloop/pkg/provider/llm/mock"
)

// quizPayload is a well-formed model response for the quiz generator.
const quizPayload = `[
  {"question": "What does FIFO stand for?", "options": ["First In First Out", "Fast In Fast Out", "First In Final Out", "Full In Full Out"], "answer": "First In First Out"},
  {"question": "Which structure is FIFO?", "options": ["Stack", "Queue", "Tree", "Heap"], "answer": "Queue"},
  {"question": "Queue insert operation?", "options": ["push", "pop", "enqueue", "dequeue"], "answer": "enqueue"}
]`

// newTestServer wires a Server from mocks. Pass nil providers to exercise
// the unconfigured paths.
func newTestServer(t *testing.T, llmProvider llm.Provider, imgProvider imagesearch.Provider) http.Handler {
	t.Helper()

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	var summarizer notes.Summarizer
	var quizGen *quiz.Generator
	if llmProvider != nil {
		summarizer = notes.NewLLMSummarizer(llmProvider)
		quizGen = quiz.NewGenerator(llmProvider, 3)
	}
	var enricher *enrich.Enricher
	if imgProvider != nil {
		enricher = enrich.NewEnricher(imgProvider, enrich.NewTTLCache(time.Minute, 16), 3, metrics)
	}
	sessions := session.NewManager(enricher, metrics, 10*time.Millisecond)

	srv := NewServer(summarizer, quizGen, enricher, sessions, metrics, Options{})
	return srv.Handler()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestImageSearch_MissingQuery(t *testing.T) {
	h := newTestServer(t, nil, &imagesearchmock.Provider{})

	rec := postJSON(t, h, "/api/image-search", map[string]string{"query": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestImageSearch_NotConfigured(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := postJSON(t, h, "/api/image-search", map[string]string{"query": "queue diagram"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body errorResponse
	decodeInto(t, rec, &body)
	if body.Error == "" {
		t.Error("missing error message")
	}
}

func TestImageSearch_ReturnsImages(t *testing.T) {
	provider := &imagesearchmock.Provider{
		Images: []imagesearch.Image{{Link: "https://img.example/q.png", Title: "queue"}},
	}
	h := newTestServer(t, nil, provider)

	rec := postJSON(t, h, "/api/image-search", map[string]string{"query": "queue diagram"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Images []imagesearch.Image `json:"images"`
		Cached bool                `json:"cached"`
	}
	decodeInto(t, rec, &body)
	if len(body.Images) != 1 || body.Cached {
		t.Errorf("body = %+v", body)
	}

	// Second identical query is served from the TTL cache.
	rec = postJSON(t, h, "/api/image-search", map[string]string{"query": "queue diagram"})
	decodeInto(t, rec, &body)
	if !body.Cached {
		t.Error("second request not served from cache")
	}
	if provider.CallCount() != 1 {
		t.Errorf("upstream called %d times, want 1", provider.CallCount())
	}
}

func TestImageSearch_UpstreamFailureDegradesTo200(t *testing.T) {
	h := newTestServer(t, nil, &imagesearchmock.Provider{Err: errors.New("quota exceeded")})

	rec := postJSON(t, h, "/api/image-search", map[string]string{"query": "graph diagram"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (degraded)", rec.Code)
	}
	var body struct {
		Images []imagesearch.Image `json:"images"`
	}
	decodeInto(t, rec, &body)
	if body.Images == nil || len(body.Images) != 0 {
		t.Errorf("images = %v, want empty non-nil list", body.Images)
	}
}

func TestQuiz_MissingBothSources(t *testing.T) {
	h := newTestServer(t, &llmmock.Provider{}, nil)

	rec := postJSON(t, h, "/api/quiz", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQuiz_GeneratesFromTopic(t *testing.T) {
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: quizPayload},
	}
	h := newTestServer(t, provider, nil)

	rec := postJSON(t, h, "/api/quiz", map[string]string{"topic": "queues"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body quizResponse
	decodeInto(t, rec, &body)
	if len(body.MCQs) != 3 {
		t.Fatalf("got %d questions, want 3", len(body.MCQs))
	}
	if body.MCQs[1].Answer != "Queue" {
		t.Errorf("mcqs = %+v", body.MCQs)
	}
}

func TestQuiz_MalformedPayloadSurfacesRaw(t *testing.T) {
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "I cannot generate a quiz right now."},
	}
	h := newTestServer(t, provider, nil)

	rec := postJSON(t, h, "/api/quiz", map[string]string{"topic": "queues"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body errorResponse
	decodeInto(t, rec, &body)
	if body.Raw != "I cannot generate a quiz right now." {
		t.Errorf("raw = %q, want verbatim model payload", body.Raw)
	}
}

func TestSummarize_MissingText(t *testing.T) {
	h := newTestServer(t, &llmmock.Provider{}, nil)

	rec := postJSON(t, h, "/api/summarize", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSummarize_RendersNotes(t *testing.T) {
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Queue: FIFO structure."},
	}
	h := newTestServer(t, provider, nil)

	rec := postJSON(t, h, "/api/summarize", map[string]string{
		"conversationText": "CLIENT: what is a queue\nAVATAR: A queue is FIFO.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body summarizeResponse
	decodeInto(t, rec, &body)
	if body.Summary != "**You:** what is a queue\n\n**AVATAR (Summarized):** Queue: FIFO structure." {
		t.Errorf("summary = %q", body.Summary)
	}
}

func TestSummarize_ProviderFailure(t *testing.T) {
	provider := &llmmock.Provider{CompleteErr: errors.New("model overloaded")}
	h := newTestServer(t, provider, nil)

	rec := postJSON(t, h, "/api/summarize", map[string]string{
		"conversationText": "CLIENT: hi\nAVATAR: hello",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestSummarize_NotConfigured(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := postJSON(t, h, "/api/summarize", map[string]string{
		"conversationText": "CLIENT: hi",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestSessions_CreateNotesEnd(t *testing.T) {
	h := newTestServer(t, nil, &imagesearchmock.Provider{})

	rec := postJSON(t, h, "/api/sessions", map[string]string{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}
	var created sessionCreateResponse
	decodeInto(t, rec, &created)
	if created.SessionID == "" {
		t.Fatal("empty session_id")
	}

	req := httptest.NewRequest("GET", "/api/sessions/"+created.SessionID+"/notes", nil)
	notesRec := httptest.NewRecorder()
	h.ServeHTTP(notesRec, req)
	if notesRec.Code != http.StatusOK {
		t.Fatalf("notes status = %d, want 200", notesRec.Code)
	}

	req = httptest.NewRequest("DELETE", "/api/sessions/"+created.SessionID, nil)
	delRec := httptest.NewRecorder()
	h.ServeHTTP(delRec, req)
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", delRec.Code)
	}

	req = httptest.NewRequest("DELETE", "/api/sessions/"+created.SessionID, nil)
	delRec = httptest.NewRecorder()
	h.ServeHTTP(delRec, req)
	if delRec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", delRec.Code)
	}
}

func TestSessions_NotesUnknownSession(t *testing.T) {
	h := newTestServer(t, nil, &imagesearchmock.Provider{})

	req := httptest.NewRequest("GET", "/api/sessions/nope/notes", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200 (no checks installed)", rec.Code)
	}
}
