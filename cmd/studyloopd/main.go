// Command studyloopd is the studyloop tutoring backend server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/studyloop/studyloop/internal/config"
	"github.com/studyloop/studyloop/internal/enrich"
	"github.com/studyloop/studyloop/internal/health"
	"github.com/studyloop/studyloop/internal/httpapi"
	"github.com/studyloop/studyloop/internal/notes"
	"github.com/studyloop/studyloop/internal/observe"
	"github.com/studyloop/studyloop/internal/quiz"
	"github.com/studyloop/studyloop/internal/resilience"
	"github.com/studyloop/studyloop/internal/session"
	"github.com/studyloop/studyloop/pkg/provider/imagesearch/rapidapi"
	"github.com/studyloop/studyloop/pkg/provider/llm"
	"github.com/studyloop/studyloop/pkg/provider/llm/anyllm"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "studyloopd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "studyloopd: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("studyloopd starting",
		"config", *configPath,
		"listen_addr", cfg.Server.Addr(),
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── LLM-backed components ─────────────────────────────────────────────────
	var summarizer notes.Summarizer
	var quizGen *quiz.Generator
	llmProvider, err := buildLLMProvider(cfg.Providers.LLM)
	if err != nil {
		slog.Error("failed to build LLM provider", "err", err)
		return 1
	}
	if llmProvider != nil {
		summarizer = notes.NewLLMSummarizer(llmProvider)
		quizGen = quiz.NewGenerator(llmProvider, cfg.Quiz.Questions)
		slog.Info("llm provider ready", "name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)
	}

	// ── Image enrichment ──────────────────────────────────────────────────────
	var enricher *enrich.Enricher
	if cfg.ImageSearch.APIKey != "" {
		var opts []rapidapi.Option
		if cfg.ImageSearch.BaseURL != "" {
			opts = append(opts, rapidapi.WithBaseURL(cfg.ImageSearch.BaseURL))
		}
		if cfg.ImageSearch.Host != "" {
			opts = append(opts, rapidapi.WithHost(cfg.ImageSearch.Host))
		}
		searcher, err := rapidapi.New(cfg.ImageSearch.APIKey, opts...)
		if err != nil {
			slog.Error("failed to build image search client", "err", err)
			return 1
		}

		breaker := resilience.NewCircuitBreaker("image_search",
			cfg.ImageSearch.BreakerMaxFailures, cfg.ImageSearch.BreakerResetTimeout.Std())
		guarded := resilience.NewSearchGuard(searcher, breaker)

		cache := enrich.NewTTLCache(cfg.ImageSearch.CacheTTL.Std(), cfg.ImageSearch.CacheMaxEntries)
		enricher = enrich.NewEnricher(guarded, cache, cfg.ImageSearch.MaxResults, metrics)
		slog.Info("image search ready", "max_results", cfg.ImageSearch.MaxResults)
	}

	// ── Sessions and HTTP API ─────────────────────────────────────────────────
	sessions := session.NewManager(enricher, metrics, cfg.Pipeline.Quiet())

	healthHandler := health.NewHandler(map[string]health.Checker{
		"llm": func() error {
			if llmProvider == nil {
				return errors.New("providers.llm not configured")
			}
			return nil
		},
		"image_search": func() error {
			if enricher == nil {
				return errors.New("image_search.api_key not configured")
			}
			return nil
		},
	})

	api := httpapi.NewServer(summarizer, quizGen, enricher, sessions, metrics, httpapi.Options{
		MetricsHandler: promhttp.Handler(),
		Health:         healthHandler,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down")
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("server error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildLLMProvider constructs the configured any-llm backend, or nil when no
// provider name is set.
func buildLLMProvider(entry config.ProviderEntry) (llm.Provider, error) {
	if entry.Name == "" {
		return nil, nil
	}
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}
