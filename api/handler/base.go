package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/api/transport"
	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/middleware"
	"github.com/fastygo/leadboard/pkg/httpcontext"
	appLogger "github.com/fastygo/leadboard/pkg/logger"
	"github.com/fastygo/leadboard/usecase"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	return baseHandler{adapter: adapter, logger: logger}
}

// requestContext derives the use case context: deadline, request ID and the
// authenticated actor for the activity journal.
func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := h.adapter.Attach(ctx)
	if userID, ok := middleware.UserID(ctx); ok {
		stdCtx = usecase.ContextWithActor(stdCtx, strconv.FormatInt(userID, 10))
	}
	return stdCtx, cancel
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInternal, "encode response", err))
		return
	}
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

// setJSONHeader stores value as a JSON header. On an encoding failure it
// writes the error response and reports false.
func (h baseHandler) setJSONHeader(ctx *fasthttp.RequestCtx, name string, value interface{}) bool {
	encoded, err := json.Marshal(value)
	if err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInternal, "encode "+name+" header", err))
		return false
	}
	ctx.Response.Header.Set(name, string(encoded))
	return true
}

func (h baseHandler) respondNoContent(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(http.StatusNoContent)
	ctx.ResetBody()
}

// respondError writes a problem body. Server-side failures are logged and
// their cause never reaches the client.
func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	detail := clientDetail(err)
	if status >= http.StatusInternalServerError {
		stdCtx := appLogger.ContextWithRequestID(context.Background(), httpcontext.RequestID(ctx))
		appLogger.WithRequestID(stdCtx, h.logger).Error("request failed",
			zap.String("method", string(ctx.Method())),
			zap.String("path", string(ctx.Path())),
			zap.Int("status", status),
			zap.Error(err),
		)
		detail = serverDetail(status)
	}
	h.respondProblem(ctx, transport.NewProblem(status, code, detail))
}

func (h baseHandler) respondProblem(ctx *fasthttp.RequestCtx, problem transport.Problem) {
	problem.Instance = string(ctx.Path())
	problem.RequestID = httpcontext.RequestID(ctx)
	body, _ := json.Marshal(problem)
	ctx.Response.Header.SetContentType(transport.ProblemContentType)
	ctx.SetStatusCode(problem.Status)
	ctx.SetBody(body)
}

// decodeJSON fills dst from the body or answers 400 and returns false.
func (h baseHandler) decodeJSON(ctx *fasthttp.RequestCtx, dst interface{}) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "request body is required"))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeInvalid) {
			h.respondError(ctx, err)
		} else {
			h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, "malformed JSON body", err))
		}
		return false
	}
	return true
}

// pathID parses a positive integer route parameter or answers 404.
func (h baseHandler) pathID(ctx *fasthttp.RequestCtx, name string, notFound error) (int64, bool) {
	raw, _ := ctx.UserValue(name).(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.respondError(ctx, notFound)
		return 0, false
	}
	return id, true
}

func mapError(err error) (int, string) {
	switch domain.CodeOf(err) {
	case domain.ErrCodeNotFound:
		return http.StatusNotFound, string(domain.ErrCodeNotFound)
	case domain.ErrCodeInvalid:
		return http.StatusBadRequest, string(domain.ErrCodeInvalid)
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized, string(domain.ErrCodeUnauthorized)
	case domain.ErrCodeConflict:
		return http.StatusConflict, string(domain.ErrCodeConflict)
	case domain.ErrCodeUnavailable:
		return http.StatusServiceUnavailable, string(domain.ErrCodeUnavailable)
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusServiceUnavailable, string(domain.ErrCodeUnavailable)
		}
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}

// clientDetail is the domain message without the wrapped cause.
func clientDetail(err error) string {
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return dErr.Message
	}
	return ""
}

func serverDetail(status int) string {
	if status == http.StatusServiceUnavailable {
		return "a backing service is unavailable, try again later"
	}
	return "an unexpected error occurred"
}
