package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/payroll-config/pkg/httpapi"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db      Pinger
	timeout time.Duration
}

// NewHealthController reports readiness of db. A nil db means the engine
// runs on memory storage and is always ready.
func NewHealthController(db Pinger) *HealthController {
	return &HealthController{db: db, timeout: 2 * time.Second}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.Health).Methods(http.MethodGet)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if c.db == nil {
		_ = httpapi.WriteJSON(w, http.StatusOK, &healthResponse{Status: "ok", Database: "memory"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()
	if err := c.db.Ping(ctx); err != nil {
		_ = httpapi.WriteJSON(w, http.StatusServiceUnavailable, &healthResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &healthResponse{Status: "ok", Database: "postgres"})
}
