package handlers

import (
	"context"
	"net/http"
	"time"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

type namedCheck struct {
	name    string
	checker HealthChecker
}

// HealthHandler reports on the backing services. A nil checker means the
// dependency is not in use (the in-memory store needs neither) and is
// left out of the report.
type HealthHandler struct {
	checks []namedCheck
	now    func() time.Time
}

func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	h := &HealthHandler{now: time.Now}
	if db != nil {
		h.checks = append(h.checks, namedCheck{name: "postgres", checker: db})
	}
	if redis != nil {
		h.checks = append(h.checks, namedCheck{name: "redis", checker: redis})
	}
	return h
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Checks:    make(map[string]string, len(h.checks)),
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}
	for _, c := range h.checks {
		if err := c.checker.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Checks[c.name] = "unhealthy: " + err.Error()
			continue
		}
		response.Checks[c.name] = "healthy"
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, c := range h.checks {
		if err := c.checker.Health(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
