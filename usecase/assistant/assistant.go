package assistant

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/infrastructure/llm"
	"github.com/fastygo/teamspace/repository"
)

const (
	// DocumentContextLimit is how much of a document is sent as context.
	DocumentContextLimit = 4000
	// ContextNotifications is how many recent notifications describe the workspace.
	ContextNotifications = 10

	Greeting         = "Hi! I'm your AI assistant. How can I help your workspace today?"
	DocumentNotFound = "[Could not load document text]"
	tipPrompt        = "Give me a productivity tip for my workspace dashboard."
)

// Suggested prompts are always offered.
var Suggested = []string{
	"How can I improve my team's productivity?",
	"Suggest a workflow for project management.",
	"What are some tips for task prioritization?",
	"Summarize our current workspace activity.",
	"How can we optimize our document organization?",
}

var ErrNotConfigured = domain.NewError(domain.ErrCodeInternal, "AI assistant is not configured")

// Request is one user turn.
type Request struct {
	History          []llm.Message `json:"history"`
	Text             string        `json:"text"`
	IncludeWorkspace bool          `json:"include_workspace"`
	DocumentID       string        `json:"document_id"`
}

// Conversation is the history after the model answered.
type Conversation struct {
	Messages []llm.Message `json:"messages"`
	Reply    string        `json:"reply"`
}

type UseCase struct {
	notifications repository.Table[domain.Notification]
	documents     repository.Table[domain.Document]
	blobs         repository.BlobStore
	client        llm.Client
	logger        *zap.Logger
}

func New(store repository.Store, blobs repository.BlobStore, client llm.Client, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		notifications: store.Notifications,
		documents:     store.Documents,
		blobs:         blobs,
		client:        client,
		logger:        logger,
	}
}

// Start returns the opening turn of a conversation.
func Start() []llm.Message {
	return []llm.Message{{Role: llm.RoleAssistant, Content: Greeting}}
}

// Send asks the model for the next turn. Workspace context takes precedence
// over document context when both are available.
func (uc *UseCase) Send(ctx context.Context, actor domain.Actor, req Request) (*Conversation, error) {
	if actor.MemberID == "" {
		return nil, domain.ErrUnauthorized
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, domain.Invalid("Message cannot be empty.")
	}
	if uc.client == nil {
		return nil, ErrNotConfigured
	}

	var workspace, document string
	if req.IncludeWorkspace {
		recent, err := uc.recent(ctx, actor)
		if err != nil {
			uc.logger.Warn("workspace context unavailable", zap.Error(err))
		}
		workspace = WorkspaceContext(recent)
	}
	if workspace == "" && req.DocumentID != "" {
		document = uc.documentText(ctx, actor, req.DocumentID)
	}

	messages := append(append([]llm.Message(nil), req.History...), llm.Message{
		Role:    llm.RoleUser,
		Content: Compose(text, workspace, document),
	})
	reply, err := uc.client.Reply(ctx, messages)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "AI error", err)
	}
	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: reply})
	return &Conversation{Messages: messages, Reply: reply}, nil
}

// Tip asks for a single productivity tip.
func (uc *UseCase) Tip(ctx context.Context) (string, error) {
	if uc.client == nil {
		return "", ErrNotConfigured
	}
	reply, err := uc.client.Reply(ctx, []llm.Message{{Role: llm.RoleUser, Content: tipPrompt}})
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeInternal, "AI error", err)
	}
	return reply, nil
}

// Suggestions returns the prompts offered to the actor.
func (uc *UseCase) Suggestions(ctx context.Context, actor domain.Actor) ([]string, error) {
	recent, err := uc.recent(ctx, actor)
	if err != nil {
		return nil, err
	}
	return Suggestions(recent), nil
}

func (uc *UseCase) recent(ctx context.Context, actor domain.Actor) ([]domain.Notification, error) {
	if actor.MemberID == "" {
		return nil, domain.ErrUnauthorized
	}
	return uc.notifications.Select(ctx, repository.Query{
		Scope:   actor.RecipientScope(),
		OrderBy: "created_at",
		Desc:    true,
		Limit:   ContextNotifications,
	})
}

// documentText returns the start of the document, or a placeholder when it
// cannot be read.
func (uc *UseCase) documentText(ctx context.Context, actor domain.Actor, id string) string {
	doc, err := uc.documents.Get(ctx, id)
	if err != nil || doc.WorkspaceID != actor.WorkspaceID {
		return DocumentNotFound
	}
	body, err := uc.blobs.Download(ctx, doc.FileURL)
	if err != nil {
		uc.logger.Info("document context unavailable", zap.String("document_id", id), zap.Error(err))
		return DocumentNotFound
	}
	defer body.Close()
	raw, err := io.ReadAll(io.LimitReader(body, DocumentContextLimit))
	if err != nil {
		return DocumentNotFound
	}
	return truncateUTF8(raw)
}

func truncateUTF8(raw []byte) string {
	for i := 0; i < utf8.UTFMax && len(raw) > 0 && !utf8.Valid(raw); i++ {
		raw = raw[:len(raw)-1]
	}
	return string(raw)
}

// WorkspaceContext renders the most recent notifications one per line.
func WorkspaceContext(recent []domain.Notification) string {
	if len(recent) > ContextNotifications {
		recent = recent[:ContextNotifications]
	}
	lines := make([]string, 0, len(recent))
	for _, n := range recent {
		lines = append(lines, n.Summary())
	}
	return strings.Join(lines, "\n")
}

// Compose prefixes the user's text with whichever context is present.
func Compose(text, workspace, document string) string {
	switch {
	case workspace != "":
		return "Workspace context:\n" + workspace + "\n\nUser: " + text
	case document != "":
		return "Document context:\n" + document + "\n\nUser: " + text
	}
	return text
}

// Suggestions builds the prompt list from the kinds of recent notifications.
func Suggestions(recent []domain.Notification) []string {
	has := make(map[domain.NotificationType]bool)
	for _, n := range recent {
		has[n.Type] = true
	}
	var out []string
	if has[domain.NotifyTaskAssigned] {
		out = append(out, "Summarize my new tasks")
	}
	if has[domain.NotifyProjectAssigned] {
		out = append(out, "What are my current projects?")
	}
	if has[domain.NotifyDocumentTagged] {
		out = append(out, "What documents was I tagged in?")
	}
	out = append(out, "What should I focus on today?")
	return append(out, Suggested...)
}
