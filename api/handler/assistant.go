package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/api/transport"
	"github.com/fastygo/teamspace/internal/infrastructure/llm"
	"github.com/fastygo/teamspace/pkg/httpcontext"
	assistantUC "github.com/fastygo/teamspace/usecase/assistant"
)

type AssistantHandler struct {
	baseHandler
	uc *assistantUC.UseCase
}

func NewAssistantHandler(uc *assistantUC.UseCase, actors ActorResolver, adapter *httpcontext.Adapter, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{
		baseHandler: newBaseHandler(adapter, actors, logger),
		uc:          uc,
	}
}

// @Summary Send a message to the assistant
// @Tags assistant
// @Router /api/v1/assistant/chat [post]
func (h *AssistantHandler) Chat(ctx *fasthttp.RequestCtx) {
	var req transport.ChatRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	messages := make([]llm.Message, 0, len(req.History))
	for _, m := range req.History {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	if len(messages) == 0 {
		messages = assistantUC.Start()
	}

	conv, err := h.uc.Send(stdCtx, actor, assistantUC.Request{
		History:          messages,
		Text:             req.Text,
		IncludeWorkspace: req.IncludeWorkspace,
		DocumentID:       req.DocumentID,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, conv)
}

// @Summary Suggested prompts for the caller
// @Tags assistant
// @Router /api/v1/assistant/suggestions [get]
func (h *AssistantHandler) Suggestions(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	prompts, err := h.uc.Suggestions(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"greeting":    assistantUC.Greeting,
		"suggestions": prompts,
	})
}

// @Summary One productivity tip
// @Tags assistant
// @Router /api/v1/assistant/tip [get]
func (h *AssistantHandler) Tip(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, ok := h.actor(ctx, stdCtx); !ok {
		return
	}

	tip, err := h.uc.Tip(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"tip": tip})
}
