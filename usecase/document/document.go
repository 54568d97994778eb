package document

import (
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/usecase"
)

// Notifier sends notifications to chosen members.
type Notifier interface {
	Notify(ctx context.Context, workspaceID string, recipients []string, typ domain.NotificationType, data map[string]string, exclude ...string) error
}

var ErrTooLarge = domain.Invalid("File is too large.")

type Config struct {
	MaxUploadBytes int64
}

// UploadInput is one file of the upload form.
type UploadInput struct {
	Name        string
	Description string
	Category    string
	ContentType string
	Size        int64
	ProjectID   string
	TaskID      string
	Body        io.Reader
}

// EditInput changes a document's description and category.
type EditInput struct {
	Description string `json:"description"`
	Category    string `json:"category"`
}

type UseCase struct {
	documents  repository.Table[domain.Document]
	comments   repository.Table[domain.Comment]
	blobs      repository.BlobStore
	hub        *realtime.Hub
	dispatcher *realtime.Dispatcher[domain.Document]
	remarks    *realtime.Dispatcher[domain.Comment]
	notifier   Notifier
	activity   *usecase.ActivityLog
	guard      *realtime.Guard
	cfg        Config
	now        func() time.Time
	logger     *zap.Logger
}

func New(store repository.Store, blobs repository.BlobStore, hub *realtime.Hub, orphans realtime.OrphanLedger, notifier Notifier, activity *usecase.ActivityLog, cfg Config, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		documents:  store.Documents,
		comments:   store.Comments,
		blobs:      blobs,
		hub:        hub,
		dispatcher: realtime.NewDispatcher(store.Documents, orphans, logger),
		remarks:    realtime.NewDispatcher(store.Comments, nil, logger),
		notifier:   notifier,
		activity:   activity,
		guard:      realtime.NewGuard(),
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

func libraryQuery(scope domain.Scope) repository.Query {
	return repository.Query{Scope: scope, OrderBy: "created_at", Desc: true}
}

func commentQuery(scope domain.Scope) repository.Query {
	return repository.Query{Scope: scope, OrderBy: "created_at"}
}

func (uc *UseCase) ListDocuments(ctx context.Context, actor domain.Actor) ([]domain.Document, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	return uc.documents.Select(ctx, libraryQuery(actor.WorkspaceScope()))
}

func (uc *UseCase) GetDocument(ctx context.Context, actor domain.Actor, id string) (*domain.Document, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	doc, err := uc.documents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.WorkspaceID != actor.WorkspaceID {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// Open mounts the documents screen: documents and their comments.
func (uc *UseCase) Open(ctx context.Context, actor domain.Actor, filter Filter) (*usecase.Screen, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	scope := actor.WorkspaceScope()
	src := realtime.Selecting(uc.documents, actor.MemberID, libraryQuery(scope))
	src.Less = func(a, b domain.Document) bool { return a.CreatedAt.After(b.CreatedAt) }
	docs, err := realtime.Mount(ctx, uc.hub, src)
	if err != nil {
		return nil, err
	}
	comments, err := realtime.Mount(ctx, uc.hub, realtime.Selecting(uc.comments, actor.MemberID, commentQuery(scope)))
	if err != nil {
		docs.Unmount()
		return nil, err
	}

	page := realtime.NewPage(uc.hub, "documents", actor.MemberID, docs, comments)
	return usecase.NewScreen(page, func() (any, any) {
		list := docs.Snapshot()
		return list, Build(list, comments.Snapshot(), filter)
	}), nil
}

// Upload stores the file, then its metadata row. If the row cannot be
// written the stored object is removed again; if that fails too the object
// is recorded as orphaned.
func (uc *UseCase) Upload(ctx context.Context, actor domain.Actor, in UploadInput) (*domain.Document, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Body == nil {
		return nil, domain.Invalid("Please choose a file to upload.")
	}
	category := domain.DocumentCategory(strings.TrimSpace(in.Category))
	if category == "" {
		category = domain.CategoryOther
	}
	if !category.Valid() {
		return nil, domain.Invalid("Invalid document category.")
	}
	if uc.cfg.MaxUploadBytes > 0 && in.Size > uc.cfg.MaxUploadBytes {
		return nil, ErrTooLarge
	}

	var created *domain.Document
	err := uc.guard.Do("upload:"+actor.MemberID, func() error {
		path := domain.StoragePath(actor.WorkspaceID, actor.MemberID, name, uc.now())
		if err := uc.blobs.Upload(ctx, path, in.Body, in.ContentType); err != nil {
			return err
		}

		row := &domain.Document{
			WorkspaceID: actor.WorkspaceID,
			Name:        name,
			Description: domain.NullIfBlank(in.Description),
			Category:    category,
			FileURL:     path,
			FileSize:    in.Size,
			FileType:    domain.NullIfBlank(in.ContentType),
			ProjectID:   domain.NullIfBlank(in.ProjectID),
			TaskID:      domain.NullIfBlank(in.TaskID),
			UploadedBy:  actor.MemberID,
		}
		target := usecase.TargetFrom[domain.Document](ctx, uc.hub, actor)
		stored, err := uc.dispatcher.Create(ctx, row, target)
		if err != nil {
			if rmErr := uc.blobs.Remove(context.WithoutCancel(ctx), path); rmErr != nil {
				uc.dispatcher.RecordOrphanObject(actor.WorkspaceID, path, rmErr)
			}
			return err
		}
		created = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.activity.Record(ctx, actor, domain.ActionCreated, domain.TableDocuments, created.ID, map[string]string{"name": created.Name})
	return created, nil
}

// Download opens the stored file. The caller closes the reader.
func (uc *UseCase) Download(ctx context.Context, actor domain.Actor, id string) (*domain.Document, io.ReadCloser, error) {
	doc, err := uc.GetDocument(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := uc.blobs.Download(ctx, doc.FileURL)
	if err != nil {
		return nil, nil, err
	}
	return doc, body, nil
}

// Edit changes the description and, when given, the category.
func (uc *UseCase) Edit(ctx context.Context, actor domain.Actor, id string, in EditInput) (*domain.Document, error) {
	if _, err := uc.GetDocument(ctx, actor, id); err != nil {
		return nil, err
	}
	description := domain.NullIfBlank(in.Description)
	fields := domain.Fields{"description": domain.NullableString(description)}
	category := domain.DocumentCategory(strings.TrimSpace(in.Category))
	if category != "" {
		if !category.Valid() {
			return nil, domain.Invalid("Invalid document category.")
		}
		fields["category"] = string(category)
	}

	target := usecase.TargetFrom[domain.Document](ctx, uc.hub, actor)
	updated, err := uc.dispatcher.Update(ctx, id, fields, target, func(d *domain.Document) {
		d.Description = description
		if category != "" {
			d.Category = category
		}
	})
	if err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, actor, domain.ActionUpdated, domain.TableDocuments, id, map[string]string{"name": updated.Name})
	return updated, nil
}

// Delete removes the stored file first and the metadata row second. When
// storage removal fails the row is kept.
func (uc *UseCase) Delete(ctx context.Context, actor domain.Actor, id string) error {
	doc, err := uc.GetDocument(ctx, actor, id)
	if err != nil {
		return err
	}
	target := usecase.TargetFrom[domain.Document](ctx, uc.hub, actor)
	err = uc.dispatcher.DeleteWith(ctx, *doc, target, realtime.SideEffect{
		Name:  "remove stored file",
		Paths: []string{doc.FileURL},
		Run: func(ctx context.Context) error {
			return uc.blobs.Remove(ctx, doc.FileURL)
		},
	})
	if err != nil {
		return err
	}
	uc.activity.Record(ctx, actor, domain.ActionDeleted, domain.TableDocuments, id, map[string]string{"name": doc.Name})
	return nil
}

// Comments lists the remarks on one document, oldest first.
func (uc *UseCase) Comments(ctx context.Context, actor domain.Actor, documentID string) ([]domain.Comment, error) {
	if _, err := uc.GetDocument(ctx, actor, documentID); err != nil {
		return nil, err
	}
	all, err := uc.comments.Select(ctx, commentQuery(actor.WorkspaceScope()))
	if err != nil {
		return nil, err
	}
	return CommentsOf(documentID, all), nil
}

// AddComment posts a remark. Members listed in mentions are notified.
func (uc *UseCase) AddComment(ctx context.Context, actor domain.Actor, documentID, text string, mentions []string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Invalid("Comment cannot be empty.")
	}
	doc, err := uc.GetDocument(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}
	target := usecase.TargetFrom[domain.Comment](ctx, uc.hub, actor)
	comment, err := uc.remarks.Create(ctx, &domain.Comment{
		DocumentID:  doc.ID,
		WorkspaceID: actor.WorkspaceID,
		AuthorID:    actor.MemberID,
		Text:        text,
	}, target)
	if err != nil {
		return nil, err
	}
	if uc.notifier != nil && len(mentions) > 0 {
		err := uc.notifier.Notify(ctx, actor.WorkspaceID, mentions, domain.NotifyDocumentTagged, map[string]string{
			"title":       doc.Name,
			"document_id": doc.ID,
		}, actor.MemberID)
		if err != nil {
			uc.logger.Warn("document mention notification failed", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	return comment, nil
}
