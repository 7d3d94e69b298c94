// Package httpapi exposes the studyloop pipeline as a JSON HTTP API plus a
// WebSocket ingress for live transcript events.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/studyloop/studyloop/internal/enrich"
	"github.com/studyloop/studyloop/internal/health"
	"github.com/studyloop/studyloop/internal/notes"
	"github.com/studyloop/studyloop/internal/observe"
	"github.com/studyloop/studyloop/internal/quiz"
	"github.com/studyloop/studyloop/internal/session"
	"github.com/studyloop/studyloop/pkg/provider/imagesearch"
)

// Server holds the pipeline components behind the HTTP API. Nil provider
// components (summarizer, quiz generator, enricher) mean the corresponding
// upstream is not configured; their endpoints answer with a configuration
// error instead of panicking.
type Server struct {
	summarizer notes.Summarizer
	quizGen    *quiz.Generator
	enricher   *enrich.Enricher
	sessions   *session.Manager
	metrics    *observe.Metrics
	health     *health.Handler

	// metricsHandler serves GET /metrics (the Prometheus scrape endpoint).
	metricsHandler http.Handler
}

// Options configures optional Server collaborators.
type Options struct {
	// MetricsHandler serves GET /metrics. Nil disables the endpoint.
	MetricsHandler http.Handler

	// Health serves /healthz and /readyz. Nil installs a handler with no
	// readiness checks.
	Health *health.Handler
}

// NewServer wires the API. summarizer, quizGen, and enricher may be nil when
// the matching provider is unconfigured.
func NewServer(summarizer notes.Summarizer, quizGen *quiz.Generator, enricher *enrich.Enricher, sessions *session.Manager, metrics *observe.Metrics, opts Options) *Server {
	h := opts.Health
	if h == nil {
		h = health.NewHandler(nil)
	}
	return &Server{
		summarizer:     summarizer,
		quizGen:        quizGen,
		enricher:       enricher,
		sessions:       sessions,
		metrics:        metrics,
		health:         h,
		metricsHandler: opts.MetricsHandler,
	}
}

// Handler returns the complete routed handler, wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/image-search", s.handleImageSearch)
	mux.HandleFunc("POST /api/quiz", s.handleQuiz)
	mux.HandleFunc("POST /api/summarize", s.handleSummarize)

	mux.HandleFunc("POST /api/sessions", s.handleSessionCreate)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleSessionEnd)
	mux.HandleFunc("GET /api/sessions/{id}/notes", s.handleSessionNotes)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.handleSessionEvents)

	mux.HandleFunc("GET /healthz", s.health.Liveness)
	mux.HandleFunc("GET /readyz", s.health.Readiness)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	return observe.Middleware(s.metrics)(mux)
}

// errorResponse is the JSON error envelope shared by all endpoints. Raw is
// set only when a malformed model payload is being surfaced for diagnosis.
type errorResponse struct {
	Error string `json:"error"`
	Raw   string `json:"raw,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody decodes the JSON request body into v, answering 400 on failure.
// Returns false when the request has already been answered.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type imageSearchRequest struct {
	Query string `json:"query"`
}

type imageSearchResponse struct {
	Images []imagesearch.Image `json:"images"`
	Cached bool                `json:"cached"`
}

// handleImageSearch serves POST /api/image-search. Input validation precedes
// any upstream work; a failing upstream degrades to an empty image list with
// status 200.
func (s *Server) handleImageSearch(w http.ResponseWriter, r *http.Request) {
	var req imageSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if s.enricher == nil {
		writeError(w, http.StatusInternalServerError, "image search API key not configured")
		return
	}

	start := time.Now()
	images, cached := s.enricher.FetchImages(r.Context(), req.Query)
	s.metrics.ImageSearchDuration.Record(r.Context(), time.Since(start).Seconds())
	if cached {
		s.metrics.ImageSearchCacheHits.Add(r.Context(), 1)
	} else {
		s.metrics.ImageSearchCacheMisses.Add(r.Context(), 1)
	}

	writeJSON(w, http.StatusOK, imageSearchResponse{Images: images, Cached: cached})
}

type quizRequest struct {
	Topic            string `json:"topic"`
	ConversationText string `json:"conversationText"`
}

type quizResponse struct {
	MCQs []quiz.MCQItem `json:"mcqs"`
}

// handleQuiz serves POST /api/quiz. The conversation text wins when both
// source fields are present; a malformed model payload is surfaced with its
// raw text for diagnosis.
func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !decodeBody(w, r, &req) {
		return
	}
	source := strings.TrimSpace(req.ConversationText)
	if source == "" {
		source = strings.TrimSpace(req.Topic)
	}
	if source == "" {
		writeError(w, http.StatusBadRequest, "topic or conversationText is required")
		return
	}
	if s.quizGen == nil {
		writeError(w, http.StatusInternalServerError, "LLM provider not configured")
		return
	}

	start := time.Now()
	items, err := s.quizGen.Generate(r.Context(), source)
	s.metrics.QuizDuration.Record(r.Context(), time.Since(start).Seconds())
	if err != nil {
		s.metrics.UpstreamErrors.Add(r.Context(), 1,
			metric.WithAttributes(attribute.String("upstream", "llm")))

		var genErr *quiz.GenerationError
		if errors.As(err, &genErr) {
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error: "quiz generation failed: " + genErr.Err.Error(),
				Raw:   genErr.Raw,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "quiz generation failed")
		return
	}

	writeJSON(w, http.StatusOK, quizResponse{MCQs: items})
}

type summarizeRequest struct {
	ConversationText string `json:"conversationText"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// handleSummarize serves POST /api/summarize.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ConversationText) == "" {
		writeError(w, http.StatusBadRequest, "conversationText is required")
		return
	}
	if s.summarizer == nil {
		writeError(w, http.StatusInternalServerError, "LLM provider not configured")
		return
	}

	start := time.Now()
	summary, err := notes.SummarizeConversation(r.Context(), s.summarizer, req.ConversationText)
	s.metrics.SummaryDuration.Record(r.Context(), time.Since(start).Seconds())
	if err != nil {
		s.metrics.UpstreamErrors.Add(r.Context(), 1,
			metric.WithAttributes(attribute.String("upstream", "llm")))
		writeError(w, http.StatusInternalServerError, "summarization failed")
		return
	}

	writeJSON(w, http.StatusOK, summarizeResponse{Summary: summary})
}
