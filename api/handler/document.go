package handler

import (
	"context"
	"io"
	"mime"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/api/transport"
	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/pkg/httpcontext"
	documentUC "github.com/fastygo/teamspace/usecase/document"
)

type DocumentHandler struct {
	baseHandler
	uc *documentUC.UseCase
}

func NewDocumentHandler(uc *documentUC.UseCase, actors ActorResolver, adapter *httpcontext.Adapter, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		baseHandler: newBaseHandler(adapter, actors, logger),
		uc:          uc,
	}
}

func documentFilter(ctx *fasthttp.RequestCtx) documentUC.Filter {
	return documentUC.Filter{
		Category: queryString(ctx, "category"),
		Search:   queryString(ctx, "search"),
	}
}

// @Summary List documents with comments and category counts
// @Tags documents
// @Router /api/v1/documents [get]
func (h *DocumentHandler) GetDocuments(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	docs, err := h.uc.ListDocuments(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, documentUC.Build(docs, nil, documentFilter(ctx)))
}

// @Summary Get document metadata
// @Tags documents
// @Router /api/v1/documents/{id} [get]
func (h *DocumentHandler) GetDocument(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	doc, err := h.uc.GetDocument(stdCtx, actor, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, doc)
}

// @Summary Upload a document (multipart field "file")
// @Tags documents
// @Router /api/v1/documents [post]
func (h *DocumentHandler) Upload(ctx *fasthttp.RequestCtx) {
	header, err := ctx.FormFile("file")
	if err != nil {
		h.respondError(ctx, domain.Invalid("Please choose a file to upload."))
		return
	}
	file, err := header.Open()
	if err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, "unreadable upload", err))
		return
	}
	defer file.Close()

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	doc, err := h.uc.Upload(stdCtx, actor, documentUC.UploadInput{
		Name:        header.Filename,
		Description: string(ctx.FormValue("description")),
		Category:    string(ctx.FormValue("category")),
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		ProjectID:   string(ctx.FormValue("project_id")),
		TaskID:      string(ctx.FormValue("task_id")),
		Body:        file,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, doc)
}

// @Summary Download the stored file
// @Tags documents
// @Router /api/v1/documents/{id}/download [get]
func (h *DocumentHandler) Download(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.streamContext(ctx)

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		cancel()
		return
	}

	doc, body, err := h.uc.Download(stdCtx, actor, pathParam(ctx, "id"))
	if err != nil {
		cancel()
		h.respondError(ctx, err)
		return
	}

	contentType := domain.Deref(doc.FileType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx.Response.Header.SetContentType(contentType)
	ctx.Response.Header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	ctx.SetStatusCode(http.StatusOK)
	// fasthttp closes the stream once it is sent; the context goes with it.
	ctx.SetBodyStream(&cancelOnClose{ReadCloser: body, cancel: cancel}, -1)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// @Summary Edit description and category
// @Tags documents
// @Router /api/v1/documents/{id} [put]
func (h *DocumentHandler) Edit(ctx *fasthttp.RequestCtx) {
	var req transport.DocumentEditRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	doc, err := h.uc.Edit(stdCtx, actor, pathParam(ctx, "id"), documentUC.EditInput{
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, doc)
}

// @Summary Delete the stored file and its metadata
// @Tags documents
// @Router /api/v1/documents/{id} [delete]
func (h *DocumentHandler) Delete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	if err := h.uc.Delete(stdCtx, actor, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Comments on a document
// @Tags documents
// @Router /api/v1/documents/{id}/comments [get]
func (h *DocumentHandler) GetComments(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	comments, err := h.uc.Comments(stdCtx, actor, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondList(ctx, comments, len(comments))
}

// @Summary Comment on a document
// @Tags documents
// @Router /api/v1/documents/{id}/comments [post]
func (h *DocumentHandler) AddComment(ctx *fasthttp.RequestCtx) {
	var req transport.CommentRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, ok := h.actor(ctx, stdCtx)
	if !ok {
		return
	}

	comment, err := h.uc.AddComment(stdCtx, actor, pathParam(ctx, "id"), req.Text, req.Mentions)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, comment)
}
