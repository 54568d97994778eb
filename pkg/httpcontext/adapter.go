package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	appLogger "github.com/fastygo/teamspace/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyViewID Key = "view_id"
)

// HeaderViewID names the live view a mutation should be reflected in.
const HeaderViewID = "X-View-ID"

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout time.Duration
}

// NewAdapter constructs a new Adapter using the provided timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		timeout: timeout,
	}
}

// Attach creates a context with timeout derived from the adapter and enriches it with request metadata.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
	return a.enrich(ctx, stdCtx), cancel
}

// AttachStream is Attach without a deadline, for long-lived streaming responses.
func (a *Adapter) AttachStream(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithCancel(context.Background())
	return a.enrich(ctx, stdCtx), cancel
}

// Timeout is the per-request deadline applied by Attach.
func (a *Adapter) Timeout() time.Duration {
	return a.timeout
}

func (a *Adapter) enrich(ctx *fasthttp.RequestCtx, stdCtx context.Context) context.Context {
	reqID := getRequestID(ctx)
	fields := []zap.Field{zap.String("request_id", reqID)}
	ctx.Response.Header.Set("X-Request-ID", reqID)

	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		fields = append(fields, zap.String("remote_addr", remoteAddr.String()))
	}
	if viewID := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderViewID))); viewID != "" {
		stdCtx = context.WithValue(stdCtx, KeyViewID, viewID)
		fields = append(fields, zap.String("view_id", viewID))
	}
	if memberID, ok := ctx.UserValue("member_id").(string); ok && memberID != "" {
		fields = append(fields, zap.String("member_id", memberID))
	}

	return appLogger.ContextWithFields(stdCtx, fields...)
}

// ViewID returns the live view id carried by the request, if any.
func ViewID(ctx context.Context) string {
	id, _ := ctx.Value(KeyViewID).(string)
	return id
}

func getRequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if header := string(ctx.Request.Header.Peek("X-Request-ID")); strings.TrimSpace(header) != "" {
		return header
	}
	return uuid.NewString()
}
