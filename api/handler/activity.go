package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/api/transport"
	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/pkg/httpcontext"
	activityUC "github.com/fastygo/leadboard/usecase/activity"
)

type ActivityHandler struct {
	baseHandler
	uc *activityUC.UseCase
}

func NewActivityHandler(uc *activityUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Change journal, newest first
// @Tags activity
// @Router /api/v1/activity [get]
func (h *ActivityHandler) List(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	page, size := transport.Paging(args)
	entityID, ok := transport.OptionalInt64(args, "entityId")
	if !ok {
		h.respondError(ctx, domain.Invalidf("entityId must be a positive integer"))
		return
	}
	req := activityUC.ListRequest{
		Entity:   transport.Text(args, "entity"),
		Page:     page,
		PageSize: size,
	}
	if entityID != nil {
		req.EntityID = *entityID
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.List(stdCtx, req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, result)
}
