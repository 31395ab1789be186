package handler

import (
	"fmt"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/api/transport"
	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/pkg/httpcontext"
	leadUC "github.com/fastygo/leadboard/usecase/lead"
	taskUC "github.com/fastygo/leadboard/usecase/task"
)

type LeadHandler struct {
	baseHandler
	uc    *leadUC.UseCase
	tasks *taskUC.UseCase
}

func NewLeadHandler(uc *leadUC.UseCase, tasks *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		tasks:       tasks,
	}
}

// @Summary List leads
// @Description Body is the page's leads; navigation metadata is in X-Pagination.
// @Tags leads
// @Router /api/v1/leads [get]
func (h *LeadHandler) List(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	page, size := transport.Paging(args)
	req := leadUC.ListRequest{
		Page:       page,
		PageSize:   size,
		Search:     transport.Text(args, "search", "searchTerm"),
		SortColumn: transport.Text(args, "sortBy", "sortColumn"),
		SortOrder:  transport.Text(args, "sortOrder"),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.ListLeads(stdCtx, req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if !h.setJSONHeader(ctx, transport.HeaderPagination, result.Meta()) {
		return
	}
	h.respondJSON(ctx, http.StatusOK, result.Items)
}

// @Summary Get lead
// @Tags leads
// @Router /api/v1/leads/{id} [get]
func (h *LeadHandler) Get(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id", domain.ErrLeadNotFound)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	lead, err := h.uc.GetLead(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, lead)
}

// @Summary Create lead
// @Tags leads
// @Router /api/v1/leads [post]
func (h *LeadHandler) Create(ctx *fasthttp.RequestCtx) {
	var input leadUC.CreateInput
	if !h.decodeJSON(ctx, &input) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	lead, err := h.uc.CreateLead(stdCtx, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.Response.Header.Set("Location", fmt.Sprintf("/api/v1/leads/%d", lead.ID))
	h.respondJSON(ctx, http.StatusCreated, lead)
}

// @Summary Update lead (partial, PUT and PATCH)
// @Tags leads
// @Router /api/v1/leads/{id} [put]
func (h *LeadHandler) Update(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id", domain.ErrLeadNotFound)
	if !ok {
		return
	}
	var input leadUC.UpdateInput
	if !h.decodeJSON(ctx, &input) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	lead, err := h.uc.UpdateLead(stdCtx, id, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, lead)
}

// @Summary Soft delete lead
// @Tags leads
// @Router /api/v1/leads/{id} [delete]
func (h *LeadHandler) Delete(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id", domain.ErrLeadNotFound)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.SoftDeleteLead(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondNoContent(ctx)
}

// @Summary Tasks of a lead
// @Tags leads
// @Router /api/v1/leads/{id}/tasks [get]
func (h *LeadHandler) Tasks(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id", domain.ErrLeadNotFound)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.tasks.ListTasksForLead(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, nonNil(tasks))
}

// @Summary Lead source catalogue
// @Tags leads
// @Router /api/v1/leads/sources [get]
func (h *LeadHandler) Sources(ctx *fasthttp.RequestCtx) {
	h.respondJSON(ctx, http.StatusOK, h.uc.LeadSources())
}

// @Summary Lead status catalogue
// @Tags leads
// @Router /api/v1/leads/statuses [get]
func (h *LeadHandler) Statuses(ctx *fasthttp.RequestCtx) {
	h.respondJSON(ctx, http.StatusOK, h.uc.LeadStatuses())
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
