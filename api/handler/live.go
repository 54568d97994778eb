package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/pkg/httpcontext"
	appLogger "github.com/fastygo/teamspace/pkg/logger"
	"github.com/fastygo/teamspace/usecase"
	calendarUC "github.com/fastygo/teamspace/usecase/calendar"
	dashboardUC "github.com/fastygo/teamspace/usecase/dashboard"
	documentUC "github.com/fastygo/teamspace/usecase/document"
	notificationUC "github.com/fastygo/teamspace/usecase/notification"
	projectUC "github.com/fastygo/teamspace/usecase/project"
	taskUC "github.com/fastygo/teamspace/usecase/task"
	teamUC "github.com/fastygo/teamspace/usecase/team"
)

// ScreenOpener mounts one screen for the caller. Query parameters of the
// stream request select filters or the calendar month.
type ScreenOpener func(stdCtx context.Context, actor domain.Actor, ctx *fasthttp.RequestCtx) (*usecase.Screen, error)

// LiveSources are the use cases behind the streamed screens.
type LiveSources struct {
	Tasks         *taskUC.UseCase
	Projects      *projectUC.UseCase
	Team          *teamUC.UseCase
	Documents     *documentUC.UseCase
	Notifications *notificationUC.UseCase
	Calendar      *calendarUC.UseCase
	Dashboard     *dashboardUC.UseCase
}

// Openers maps each view name to its screen.
func (s LiveSources) Openers() map[string]ScreenOpener {
	return map[string]ScreenOpener{
		"tasks": func(stdCtx context.Context, actor domain.Actor, ctx *fasthttp.RequestCtx) (*usecase.Screen, error) {
			return s.Tasks.Open(stdCtx, actor, taskFilter(ctx))
		},
		"projects": func(stdCtx context.Context, actor domain.Actor, ctx *fasthttp.RequestCtx) (*usecase.Screen, error) {
			return s.Projects.Open(stdCtx, actor, projectFilter(ctx))
		},
		"team": func(stdCtx context.Context, actor domain.Actor, _ *fasthttp.RequestCtx) (*usecase.Screen, error) {
			return s.Team.Open(stdCtx, actor)
		},
		"documents": func(stdCtx context.Context, actor domain.Actor, ctx *fasthttp.RequestCtx) (*usecase.Screen, error) {
			return s.Documents.Open(stdCtx, actor, documentFilter(ctx))
		},
		"notifications": func(stdCtx context.Context, actor domain.Actor, _ *fasthttp.RequestCtx) (*usecase.Screen, error) {
			return s.Notifications.Open(stdCtx, actor)
		},
		"meetings": func(stdCtx context.Context, actor domain.Actor, ctx *fasthttp.RequestCtx) (*usecase.Screen, error) {
			month, err := monthParam(ctx)
			if err != nil {
				return nil, err
			}
			return s.Calendar.Open(stdCtx, actor, month)
		},
		"dashboard": func(stdCtx context.Context, actor domain.Actor, _ *fasthttp.RequestCtx) (*usecase.Screen, error) {
			return s.Dashboard.Open(stdCtx, actor)
		},
		"activity": func(stdCtx context.Context, actor domain.Actor, _ *fasthttp.RequestCtx) (*usecase.Screen, error) {
			return s.Dashboard.OpenActivity(stdCtx, actor)
		},
	}
}

// Snapshot is the payload of one "snapshot" event.
type Snapshot struct {
	ViewID  string      `json:"view_id"`
	View    string      `json:"view"`
	Data    interface{} `json:"data"`
	Derived interface{} `json:"derived"`
	Error   string      `json:"error,omitempty"`
}

type LiveHandler struct {
	baseHandler
	openers   map[string]ScreenOpener
	heartbeat time.Duration

	quit     chan struct{}
	quitOnce sync.Once
}

func NewLiveHandler(openers map[string]ScreenOpener, actors ActorResolver, adapter *httpcontext.Adapter, heartbeat time.Duration, logger *zap.Logger) *LiveHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &LiveHandler{
		baseHandler: newBaseHandler(adapter, actors, logger),
		openers:     openers,
		heartbeat:   heartbeat,
		quit:        make(chan struct{}),
	}
}

// Close ends every open stream. Their screens are unmounted.
func (h *LiveHandler) Close() {
	h.quitOnce.Do(func() { close(h.quit) })
}

// @Summary Stream a live screen as server-sent events
// @Tags live
// @Router /api/v1/live/{view} [get]
func (h *LiveHandler) Stream(ctx *fasthttp.RequestCtx) {
	name := pathParam(ctx, "view")
	open, ok := h.openers[name]
	if !ok {
		h.respondError(ctx, domain.NewError(domain.ErrCodeNotFound, fmt.Sprintf("unknown view %q", name)))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}
	screen, err := open(stdCtx, actor, ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	logger := appLogger.For(stdCtx, h.logger).With(zap.String("view", name), zap.String("view_id", screen.ID()))
	logger.Debug("live view mounted")

	ctx.Response.Header.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")
	ctx.Response.Header.Set(httpcontext.HeaderViewID, screen.ID())
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			screen.Unmount()
			logger.Debug("live view unmounted")
		}()
		if err := h.pump(w, name, screen); err != nil {
			logger.Debug("live stream closed", zap.Error(err))
		}
	})
}

// pump writes a snapshot now and after every change until the client goes
// away, the screen is unmounted or the handler is closed.
func (h *LiveHandler) pump(w *bufio.Writer, name string, screen *usecase.Screen) error {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	if err := writeSnapshot(w, name, screen); err != nil {
		return err
	}
	for {
		select {
		case <-h.quit:
			return nil
		case <-screen.Done():
			return nil
		case <-screen.Changes():
			if err := writeSnapshot(w, name, screen); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

type failing interface {
	Err() error
}

func writeSnapshot(w *bufio.Writer, name string, screen *usecase.Screen) error {
	data, derived := screen.Render()
	snap := Snapshot{ViewID: screen.ID(), View: name, Data: data, Derived: derived}
	for _, part := range screen.Parts() {
		if f, ok := part.(failing); ok && f.Err() != nil {
			snap.Error = domain.UserMessage(f.Err())
			break
		}
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
