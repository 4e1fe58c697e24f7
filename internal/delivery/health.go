package delivery

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"homestay/internal/registry"
	httputil "homestay/pkg/http"
	"homestay/pkg/logger"
)

type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// HealthHandler reports liveness for the delivery worker. There is no
// database behind this process, so readiness is the same as liveness.
type HealthHandler struct {
	registry *registry.Registry
	log      *logger.Logger
}

func NewHealthHandler(reg *registry.Registry, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		registry: reg,
		log:      log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Connections: h.registry.Len(),
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Health)
}
