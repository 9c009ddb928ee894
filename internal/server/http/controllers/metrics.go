package controllers

import (
	"net/http"

	"github.com/rzbill/inferq/internal/runtime"
)

// MetricsController serves the Prometheus registry, when the runtime has one.
type MetricsController struct {
	rt *runtime.Runtime
}

func NewMetricsController(rt *runtime.Runtime) *MetricsController {
	return &MetricsController{rt: rt}
}

func (c *MetricsController) RegisterRoutes(mux *http.ServeMux) {
	if m := c.rt.Metrics(); m != nil {
		mux.Handle("/metrics", m.Handler())
	}
}
