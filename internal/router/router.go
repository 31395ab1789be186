package router

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/leadboard/api/handler"
	"github.com/fastygo/leadboard/api/transport"
	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/pkg/httpcontext"
)

type Handlers struct {
	Auth     *apiHandler.AuthHandler
	Lead     *apiHandler.LeadHandler
	Task     *apiHandler.TaskHandler
	Activity *apiHandler.ActivityHandler
	Health   *apiHandler.HealthHandler
}

// New wires every route. The returned handler tags each response with
// X-Request-ID, including 404s and recovered panics.
func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler, logger *zap.Logger) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := router.New()
	r.PanicHandler = panicHandler(logger)
	r.NotFound = problemHandler(http.StatusNotFound, string(domain.ErrCodeNotFound), "no such route")
	r.MethodNotAllowed = problemHandler(http.StatusMethodNotAllowed, string(domain.ErrCodeInvalid), "method not allowed")

	r.GET("/health", handlers.Health.Check)

	api := r.Group("/api/v1")

	api.POST("/auth/login", handlers.Auth.Login)
	api.POST("/auth/logout", authMiddleware(handlers.Auth.Logout))
	api.GET("/profile", authMiddleware(handlers.Auth.Profile))

	api.GET("/leads/sources", handlers.Lead.Sources)
	api.GET("/leads/statuses", handlers.Lead.Statuses)
	api.GET("/leads", authMiddleware(handlers.Lead.List))
	api.POST("/leads", authMiddleware(handlers.Lead.Create))
	api.GET("/leads/{id}", authMiddleware(handlers.Lead.Get))
	api.PUT("/leads/{id}", authMiddleware(handlers.Lead.Update))
	api.PATCH("/leads/{id}", authMiddleware(handlers.Lead.Update))
	api.DELETE("/leads/{id}", authMiddleware(handlers.Lead.Delete))
	api.GET("/leads/{id}/tasks", authMiddleware(handlers.Lead.Tasks))

	api.GET("/tasks/statuses", handlers.Task.Statuses)
	api.GET("/tasks/priorities", handlers.Task.Priorities)
	api.POST("/tasks/move", authMiddleware(handlers.Task.Move))
	api.GET("/tasks", authMiddleware(handlers.Task.List))
	api.POST("/tasks", authMiddleware(handlers.Task.Create))
	api.GET("/tasks/{id}", authMiddleware(handlers.Task.Get))
	api.PUT("/tasks/{id}", authMiddleware(handlers.Task.Update))
	api.PATCH("/tasks/{id}", authMiddleware(handlers.Task.Update))
	api.DELETE("/tasks/{id}", authMiddleware(handlers.Task.Delete))

	api.GET("/activity", authMiddleware(handlers.Activity.List))

	return httpcontext.WithRequestID(r.Handler)
}

func panicHandler(logger *zap.Logger) func(*fasthttp.RequestCtx, interface{}) {
	internal := problemHandler(http.StatusInternalServerError, string(domain.ErrCodeInternal), "an unexpected error occurred")
	return func(ctx *fasthttp.RequestCtx, recovered interface{}) {
		logger.Error("panic while serving request",
			zap.String("request_id", httpcontext.RequestID(ctx)),
			zap.String("method", string(ctx.Method())),
			zap.String("path", string(ctx.Path())),
			zap.String("panic", fmt.Sprint(recovered)),
			zap.Stack("stack"),
		)
		internal(ctx)
	}
}

func problemHandler(status int, code, detail string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		problem := transport.NewProblem(status, code, detail)
		problem.Instance = string(ctx.Path())
		problem.RequestID = httpcontext.RequestID(ctx)
		body, _ := json.Marshal(problem)
		ctx.Response.Header.SetContentType(transport.ProblemContentType)
		ctx.SetStatusCode(status)
		ctx.SetBody(body)
	}
}
