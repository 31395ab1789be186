package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/api/transport"
	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/pkg/httpcontext"
	authUC "github.com/fastygo/leadboard/usecase/auth"
)

const (
	userIDValue = "user_id"
	claimsValue = "claims"
)

// Authenticator validates bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*authUC.Claims, error)
}

// JWTAuth rejects requests without a valid token and stores the caller's
// claims on the request for handlers.
func JWTAuth(auth Authenticator, adapter *httpcontext.Adapter, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				unauthorized(ctx, "missing bearer token")
				return
			}

			stdCtx, cancel := adapter.Attach(ctx)
			claims, err := auth.Authenticate(stdCtx, tokenString)
			cancel()
			if err != nil {
				if domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
					logger.Debug("rejected token", zap.Error(err))
					unauthorized(ctx, "invalid or expired token")
					return
				}
				logger.Error("token check failed", zap.String("request_id", httpcontext.RequestID(ctx)), zap.Error(err))
				writeProblem(ctx, transport.NewProblem(http.StatusServiceUnavailable, string(domain.ErrCodeUnavailable), "authentication is temporarily unavailable"))
				return
			}

			userID, _ := claims.UserID()
			ctx.SetUserValue(userIDValue, userID)
			ctx.SetUserValue(claimsValue, claims)
			next(ctx)
		}
	}
}

// UserID returns the authenticated caller set by JWTAuth.
func UserID(ctx *fasthttp.RequestCtx) (int64, bool) {
	id, ok := ctx.UserValue(userIDValue).(int64)
	return id, ok && id > 0
}

// Claims returns the token claims set by JWTAuth.
func Claims(ctx *fasthttp.RequestCtx) *authUC.Claims {
	claims, _ := ctx.UserValue(claimsValue).(*authUC.Claims)
	return claims
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func unauthorized(ctx *fasthttp.RequestCtx, detail string) {
	ctx.Response.Header.Set("WWW-Authenticate", `Bearer realm="leadboard"`)
	writeProblem(ctx, transport.NewProblem(http.StatusUnauthorized, string(domain.ErrCodeUnauthorized), detail))
}

func writeProblem(ctx *fasthttp.RequestCtx, problem transport.Problem) {
	problem.Instance = string(ctx.Path())
	problem.RequestID = httpcontext.RequestID(ctx)
	body, _ := json.Marshal(problem)
	ctx.Response.Header.SetContentType(transport.ProblemContentType)
	ctx.SetStatusCode(problem.Status)
	ctx.SetBody(body)
}
