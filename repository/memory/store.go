package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// Backend is a complete in-process remote: tables, change feed and blob storage.
type Backend struct {
	Store repository.Store
	Feed  *Feed
	Blobs *Blobs

	workspaces *table[domain.Workspace]
	members    *table[domain.Member]
}

// Option configures a Backend.
type Option func(*options)

type options struct {
	clock func() time.Time
}

// WithClock overrides the timestamp source for created_at / updated_at.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func columns(cols ...string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}

func New(opts ...Option) *Backend {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	feed := NewFeed()

	b := &Backend{Feed: feed, Blobs: NewBlobs()}
	b.workspaces = newTable[domain.Workspace](tableSpec{
		name:     domain.TableWorkspaces,
		scopeCol: domain.ColumnID,
		mutable:  columns("name", "description"),
		notFound: domain.ErrWorkspaceNotFound,
	}, feed, o.clock)
	b.members = newTable[domain.Member](tableSpec{
		name:     domain.TableMembers,
		scopeCol: domain.ColumnWorkspaceID,
		mutable:  columns("name", "avatar_url", "workspace_id", "role", "title", "department", "phone", "location"),
		notFound: domain.ErrMemberNotFound,
	}, feed, o.clock)

	b.Store = repository.Store{
		Workspaces: b.workspaces,
		Members:    b.members,
		Tasks: newTable[domain.Task](tableSpec{
			name:     domain.TableTasks,
			scopeCol: domain.ColumnWorkspaceID,
			mutable:  columns("title", "description", "status", "priority", "project_id", "assigned_to", "due_date"),
			defaults: row{"status": string(domain.TaskTodo), "priority": string(domain.PriorityMedium)},
			notFound: domain.ErrTaskNotFound,
		}, feed, o.clock),
		Projects: newTable[domain.Project](tableSpec{
			name:     domain.TableProjects,
			scopeCol: domain.ColumnWorkspaceID,
			mutable:  columns("name", "description", "status", "priority", "due_date", "assigned_members"),
			defaults: row{"status": string(domain.ProjectActive), "priority": string(domain.PriorityMedium)},
			notFound: domain.ErrProjectNotFound,
		}, feed, o.clock),
		Documents: newTable[domain.Document](tableSpec{
			name:     domain.TableDocuments,
			scopeCol: domain.ColumnWorkspaceID,
			mutable:  columns("name", "description", "category", "project_id", "task_id"),
			defaults: row{"category": string(domain.CategoryOther)},
			notFound: domain.ErrDocumentNotFound,
		}, feed, o.clock),
		Comments: newTable[domain.Comment](tableSpec{
			name:     domain.TableComments,
			scopeCol: domain.ColumnWorkspaceID,
			mutable:  columns("text"),
		}, feed, o.clock),
		Meetings: newTable[domain.Meeting](tableSpec{
			name:     domain.TableMeetings,
			scopeCol: domain.ColumnWorkspaceID,
			mutable:  columns("title", "description", "start_time", "end_time", "location", "meeting_link"),
		}, feed, o.clock),
		Notifications: newTable[domain.Notification](tableSpec{
			name:     domain.TableNotifications,
			scopeCol: domain.ColumnRecipientID,
			mutable:  columns("read"),
		}, feed, o.clock),
		Activity: newTable[domain.Activity](tableSpec{
			name:     domain.TableActivity,
			scopeCol: domain.ColumnWorkspaceID,
		}, feed, o.clock),
		Credentials: &credentials{rows: make(map[string]domain.Credential)},
	}
	b.Store.Lookup = &lookup{backend: b}
	return b
}

type lookup struct {
	backend *Backend
}

func (l *lookup) WorkspaceByJoinCode(ctx context.Context, code string) (*domain.Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ws, ok := l.backend.workspaces.find("join_code", domain.NormalizeJoinCode(code))
	if !ok {
		return nil, domain.ErrInvalidJoinCode
	}
	return ws, nil
}

func (l *lookup) MemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, ok := l.backend.members.find("email", strings.ToLower(strings.TrimSpace(email)))
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return m, nil
}

func (l *lookup) InsertNotifications(ctx context.Context, rows []domain.Notification) error {
	for i := range rows {
		if _, err := l.backend.Store.Notifications.Insert(ctx, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

type credentials struct {
	mu   sync.RWMutex
	rows map[string]domain.Credential
}

func (c *credentials) Get(ctx context.Context, email string) (*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	cred, ok := c.rows[strings.ToLower(email)]
	c.mu.RUnlock()
	if !ok {
		return nil, domain.ErrBadCredentials
	}
	return &cred, nil
}

func (c *credentials) Save(ctx context.Context, cred *domain.Credential) error {
	if cred == nil {
		return domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.rows[strings.ToLower(cred.Email)] = *cred
	c.mu.Unlock()
	return nil
}
