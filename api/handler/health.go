package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/api/transport"
	"github.com/fastygo/leadboard/internal/infrastructure/monitor"
	"github.com/fastygo/leadboard/pkg/httpcontext"
)

// StatusSource reports dependency health.
type StatusSource interface {
	GetStatus() monitor.Status
}

type HealthHandler struct {
	baseHandler
	monitor StatusSource
}

func NewHealthHandler(mon StatusSource, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

type healthResponse struct {
	Status   string         `json:"status"`
	Services monitor.Status `json:"services"`
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	if status.Healthy() {
		h.respondJSON(ctx, http.StatusOK, healthResponse{Status: "ok", Services: status})
		return
	}
	problem := transport.NewProblem(http.StatusServiceUnavailable, "DEGRADED", "dependencies unhealthy")
	h.respondProblem(ctx, problem)
	h.logger.Warn("health check degraded",
		zap.Bool("database", status.Database),
		zap.Bool("redis", status.Redis),
	)
}
