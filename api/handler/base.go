package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/api/transport"
	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/middleware"
	"github.com/fastygo/teamspace/pkg/httpcontext"
)

// ActorResolver loads the workspace context of an authenticated member.
type ActorResolver interface {
	Actor(ctx context.Context, memberID string) (domain.Actor, *domain.Member, error)
}

type baseHandler struct {
	adapter *httpcontext.Adapter
	actors  ActorResolver
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, actors ActorResolver, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, actors: actors, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) streamContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.AttachStream(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, responseMeta(ctx)))
}

func (h baseHandler) respondList(ctx *fasthttp.RequestCtx, items interface{}, n int) {
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(items, transport.Counted(responseMeta(ctx), n)))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
	}
	h.respondJSON(ctx, status, transport.NewError(code, domain.UserMessage(err), responseMeta(ctx)))
}

// responseMeta echoes the request id and, on writes, the live view the
// mutation was patched into.
func responseMeta(ctx *fasthttp.RequestCtx) *transport.Meta {
	meta := &transport.Meta{RequestID: string(ctx.Response.Header.Peek("X-Request-ID"))}
	if !ctx.IsGet() {
		meta.ViewID = strings.TrimSpace(string(ctx.Request.Header.Peek(httpcontext.HeaderViewID)))
	}
	return meta
}

// decode reads the JSON body into req and validates it. On failure the error
// response is already written.
func (h baseHandler) decode(ctx *fasthttp.RequestCtx, req interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return false
	}
	if err := transport.Validate(req); err != nil {
		h.respondError(ctx, err)
		return false
	}
	return true
}

// actor resolves the caller. On failure the error response is already written.
func (h baseHandler) actor(ctx *fasthttp.RequestCtx, stdCtx context.Context) (domain.Actor, bool) {
	memberID, _ := ctx.UserValue(middleware.KeyMemberID).(string)
	if memberID == "" || h.actors == nil {
		h.respondError(ctx, domain.ErrUnauthorized)
		return domain.Actor{}, false
	}
	actor, _, err := h.actors.Actor(stdCtx, memberID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			err = domain.ErrUnauthorized
		}
		h.respondError(ctx, err)
		return domain.Actor{}, false
	}
	return actor, true
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func queryString(ctx *fasthttp.RequestCtx, name string) string {
	return string(ctx.QueryArgs().Peek(name))
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return v
}

func mapError(err error) (int, string) {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized, string(domain.ErrCodeUnauthorized)
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		return http.StatusForbidden, string(domain.ErrCodeForbidden)
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return http.StatusBadRequest, string(domain.ErrCodeInvalid)
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, string(domain.ErrCodeNotFound)
	case domain.IsDomainError(err, domain.ErrCodeConflict):
		return http.StatusConflict, string(domain.ErrCodeConflict)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}
