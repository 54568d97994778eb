package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/api/transport"
	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/pkg/httpcontext"
	teamUC "github.com/fastygo/teamspace/usecase/team"
)

type TeamHandler struct {
	baseHandler
	uc *teamUC.UseCase
}

func NewTeamHandler(uc *teamUC.UseCase, actors ActorResolver, adapter *httpcontext.Adapter, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{
		baseHandler: newBaseHandler(adapter, actors, logger),
		uc:          uc,
	}
}

type membership struct {
	Workspace *domain.Workspace `json:"workspace"`
	Member    *domain.Member    `json:"member"`
}

// @Summary Create a workspace; the caller becomes its admin
// @Tags team
// @Router /api/v1/workspace [post]
func (h *TeamHandler) CreateWorkspace(ctx *fasthttp.RequestCtx) {
	var req transport.WorkspaceRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	ws, member, err := h.uc.CreateWorkspace(stdCtx, actor, req.Name, req.Description)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, membership{Workspace: ws, Member: member})
}

// @Summary Join a workspace by its code
// @Tags team
// @Router /api/v1/workspace/join [post]
func (h *TeamHandler) JoinWorkspace(ctx *fasthttp.RequestCtx) {
	var req transport.JoinRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	ws, member, err := h.uc.JoinWorkspace(stdCtx, actor, req.Code)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, membership{Workspace: ws, Member: member})
}

// @Summary Current workspace
// @Tags team
// @Router /api/v1/workspace [get]
func (h *TeamHandler) GetWorkspace(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	ws, err := h.uc.Workspace(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ws)
}

// @Summary Rename the workspace (admin)
// @Tags team
// @Router /api/v1/workspace [put]
func (h *TeamHandler) RenameWorkspace(ctx *fasthttp.RequestCtx) {
	var req transport.WorkspaceRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	ws, err := h.uc.RenameWorkspace(stdCtx, actor, req.Name, req.Description)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ws)
}

// @Summary Workspace members
// @Tags team
// @Router /api/v1/workspace/members [get]
func (h *TeamHandler) GetMembers(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	members, err := h.uc.Members(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondList(ctx, members, len(members))
}

// @Summary Switch a member between admin and member (admin)
// @Tags team
// @Router /api/v1/workspace/members/{id}/role [post]
func (h *TeamHandler) ToggleRole(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	member, err := h.uc.ToggleRole(stdCtx, actor, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, member)
}

// @Summary Remove a member from the workspace (admin)
// @Tags team
// @Router /api/v1/workspace/members/{id} [delete]
func (h *TeamHandler) RemoveMember(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	if err := h.uc.RemoveMember(stdCtx, actor, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}
