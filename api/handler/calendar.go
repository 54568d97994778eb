package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/api/transport"
	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/pkg/httpcontext"
	calendarUC "github.com/fastygo/teamspace/usecase/calendar"
)

type CalendarHandler struct {
	baseHandler
	uc *calendarUC.UseCase
}

func NewCalendarHandler(uc *calendarUC.UseCase, actors ActorResolver, adapter *httpcontext.Adapter, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{
		baseHandler: newBaseHandler(adapter, actors, logger),
		uc:          uc,
	}
}

// monthParam reads year, month and tz. Missing or invalid values fall back to
// the current month in UTC.
func monthParam(ctx *fasthttp.RequestCtx) (calendarUC.Month, error) {
	loc := time.UTC
	if tz := queryString(ctx, "tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return calendarUC.Month{}, domain.Invalid("Unknown time zone.")
		}
		loc = l
	}
	now := time.Now().In(loc)
	month := parseInt(queryString(ctx, "month"), int(now.Month()))
	if month < 1 || month > 12 {
		return calendarUC.Month{}, domain.Invalid("Month must be between 1 and 12.")
	}
	return calendarUC.Month{
		Year:     parseInt(queryString(ctx, "year"), now.Year()),
		Month:    time.Month(month),
		Location: loc,
	}, nil
}

type monthView struct {
	*calendarUC.Events
	Days []calendarUC.Day `json:"days"`
}

// @Summary Meetings and due tasks of a month
// @Tags calendar
// @Router /api/v1/calendar [get]
func (h *CalendarHandler) GetMonth(ctx *fasthttp.RequestCtx) {
	month, err := monthParam(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	events, err := h.uc.MonthEvents(stdCtx, actor, month)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, monthView{
		Events: events,
		Days:   calendarUC.Days(month, events.Meetings, events.Tasks),
	})
}

// @Summary Schedule a meeting
// @Tags calendar
// @Router /api/v1/meetings [post]
func (h *CalendarHandler) CreateMeeting(ctx *fasthttp.RequestCtx) {
	var req transport.MeetingRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	meeting, err := h.uc.CreateMeeting(stdCtx, actor, req.Input())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, meeting)
}

// @Summary Get meeting
// @Tags calendar
// @Router /api/v1/meetings/{id} [get]
func (h *CalendarHandler) GetMeeting(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	meeting, err := h.uc.GetMeeting(stdCtx, actor, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, meeting)
}

// @Summary Cancel a meeting
// @Tags calendar
// @Router /api/v1/meetings/{id} [delete]
func (h *CalendarHandler) DeleteMeeting(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	if err := h.uc.DeleteMeeting(stdCtx, actor, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}
