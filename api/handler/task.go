package handler

import (
	"fmt"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/api/transport"
	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/pkg/httpcontext"
	taskUC "github.com/fastygo/leadboard/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List tasks
// @Description Optional filters: status (name or ordinal) and leadId.
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) List(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	var filter listing.TaskQuery

	if raw := transport.Text(args, "status"); raw != "" {
		status, err := domain.ParseTaskStatus(raw)
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		filter.Status = &status
	}
	leadID, ok := transport.OptionalInt64(args, "leadId")
	if !ok {
		h.respondError(ctx, domain.Invalidf("leadId must be a positive integer"))
		return
	}
	filter.LeadID = leadID

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, nonNil(tasks))
}

// @Summary Get task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) Get(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id", domain.ErrTaskNotFound)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, task)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) Create(ctx *fasthttp.RequestCtx) {
	var input taskUC.CreateInput
	if !h.decodeJSON(ctx, &input) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.CreateTask(stdCtx, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.Response.Header.Set("Location", fmt.Sprintf("/api/v1/tasks/%d", task.ID))
	h.respondJSON(ctx, http.StatusCreated, task)
}

// @Summary Update task (partial, PUT and PATCH)
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) Update(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id", domain.ErrTaskNotFound)
	if !ok {
		return
	}
	var input taskUC.UpdateInput
	if !h.decodeJSON(ctx, &input) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.UpdateTask(stdCtx, id, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, task)
}

// @Summary Soft delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) Delete(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id", domain.ErrTaskNotFound)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.SoftDeleteTask(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondNoContent(ctx)
}

// @Summary Move a card on the board
// @Tags tasks
// @Accept json
// @Router /api/v1/tasks/move [post]
func (h *TaskHandler) Move(ctx *fasthttp.RequestCtx) {
	var input taskUC.MoveInput
	if !h.decodeJSON(ctx, &input) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.MoveTask(stdCtx, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, task)
}

// @Summary Task status catalogue
// @Tags tasks
// @Router /api/v1/tasks/statuses [get]
func (h *TaskHandler) Statuses(ctx *fasthttp.RequestCtx) {
	h.respondJSON(ctx, http.StatusOK, h.uc.TaskStatuses())
}

// @Summary Task priority catalogue
// @Tags tasks
// @Router /api/v1/tasks/priorities [get]
func (h *TaskHandler) Priorities(ctx *fasthttp.RequestCtx) {
	h.respondJSON(ctx, http.StatusOK, h.uc.TaskPriorities())
}
