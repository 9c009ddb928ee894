package controllers

import (
	"net/http"

	"github.com/rzbill/inferq/internal/runtime"
	"github.com/rzbill/inferq/pkg/log"
)

// GeneralController handles the liveness and readiness probes.
type GeneralController struct {
	rt     *runtime.Runtime
	logger log.Logger
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime, logger log.Logger) *GeneralController {
	return &GeneralController{rt: rt, logger: logger}
}

// RegisterRoutes registers general routes with the given mux.
//
// This method sets up HTTP endpoints for:
// - Health checks against the stream store (/v1/healthz)
// - Worker readiness (/v1/readyz)
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/readyz", c.handleReady)
}

// handleHealth returns 200 OK with {"status": "ok"} when the stream store
// answers a ping, 503 Service Unavailable otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		c.logger.Warn("health check failed", log.Err(err))
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleReady returns 200 while the worker loop accepts new messages.
func (c *GeneralController) handleReady(w http.ResponseWriter, r *http.Request) {
	if !c.rt.Ready() {
		writeError(w, http.StatusServiceUnavailable, "not_ready")
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}
