package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/util"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelStatus is implemented by ai.ModelManager.
type ModelStatus interface {
	VisionAvailable() bool
	TextAvailable() bool
	CircuitStatus() []util.CircuitBreakerStatus
}

// CircuitReporter is implemented by util.CircuitBreaker.
type CircuitReporter interface {
	GetStatus() util.CircuitBreakerStatus
}

type HealthHandler struct {
	deps     map[string]Pinger
	models   ModelStatus
	circuits []CircuitReporter
}

// NewHealthHandler reports deps, model availability and any extra circuits
// (the scraper breakers) on /ready.
func NewHealthHandler(deps map[string]Pinger, models ModelStatus, circuits ...CircuitReporter) *HealthHandler {
	return &HealthHandler{deps: deps, models: models, circuits: circuits}
}

type HealthResponse struct {
	Status    string                      `json:"status"`
	Timestamp string                      `json:"timestamp"`
	Checks    map[string]string           `json:"checks,omitempty"`
	Models    map[string]bool             `json:"models,omitempty"`
	Circuits  []util.CircuitBreakerStatus `json:"circuits,omitempty"`
}

// Live handles GET /health.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready. Missing LLM providers do not fail readiness
// because extraction degrades to the default tier.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.RedisConfig.ReadyTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string, len(h.deps)),
	}

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	for _, name := range names {
		if err := h.deps[name].Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	if h.models != nil {
		resp.Models = map[string]bool{
			"vision": h.models.VisionAvailable(),
			"text":   h.models.TextAvailable(),
		}
		resp.Circuits = h.models.CircuitStatus()
	}
	for _, c := range h.circuits {
		resp.Circuits = append(resp.Circuits, c.GetStatus())
	}

	writeJSON(w, status, resp)
}
