// Package health exposes liveness and readiness handlers.
//
// Liveness is unconditional: if the process answers, it is alive. Readiness
// runs a set of named [Checker] funcs (provider configuration, mostly) and
// reports per-check status so an operator can see which dependency is
// missing.
package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Checker reports whether one named dependency is ready. A nil error means
// ready.
type Checker func() error

// Handler serves the /healthz and /readyz endpoints.
type Handler struct {
	checks map[string]Checker
}

// NewHandler creates a Handler with the given named readiness checks.
func NewHandler(checks map[string]Checker) *Handler {
	if checks == nil {
		checks = map[string]Checker{}
	}
	return &Handler{checks: checks}
}

// Liveness always reports 200 with {"status":"ok"}.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness runs every check and reports 200 when all pass, 503 otherwise.
// The body maps each check name to "ok" or its error string.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(h.checks))
	ready := true

	for name, check := range h.checks {
		if err := check(); err != nil {
			results[name] = err.Error()
			ready = false
			slog.Warn("readiness check failed", "check", name, "err", err)
			continue
		}
		results[name] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"ready":  ready,
		"checks": results,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
