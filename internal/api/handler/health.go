package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports process liveness. It never checks dependencies so a
// degraded backend does not get the process restarted.
func Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ReadyHandler reports readiness by pinging each backing dependency.
type ReadyHandler struct {
	deps    map[string]Pinger
	timeout time.Duration
}

func NewReadyHandler(deps map[string]Pinger) *ReadyHandler {
	return &ReadyHandler{
		deps:    deps,
		timeout: 2 * time.Second,
	}
}

// Ready handles GET /ready. Any unreachable dependency turns the
// response into a 503 with per-dependency detail.
func (h *ReadyHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}

	body := HealthResponse{Status: "ready", Checks: checks}
	if status != http.StatusOK {
		body.Status = "degraded"
	}
	JSON(w, status, body)
}
