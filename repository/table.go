package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fastygo/teamspace/domain"
)

// TimeRange bounds a timestamp column inclusively on both ends.
type TimeRange struct {
	Column string
	From   time.Time
	To     time.Time
}

// Query selects the scoped result set of a table. Scope is mandatory.
type Query struct {
	Scope   domain.Scope
	Range   *TimeRange
	OrderBy string
	Desc    bool
	Limit   int
}

// Key renders q canonically: equal queries give equal keys.
func (q Query) Key() string {
	var b strings.Builder
	b.WriteString(q.Scope.Key())
	if q.Range != nil {
		fmt.Fprintf(&b, "&%s=%d..%d", q.Range.Column, q.Range.From.UnixNano(), q.Range.To.UnixNano())
	}
	if q.OrderBy != "" {
		b.WriteString("&order=" + q.OrderBy)
		if q.Desc {
			b.WriteString(".desc")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, "&limit=%d", q.Limit)
	}
	return b.String()
}

// ScopedQuery is the common "everything in this scope" query.
func ScopedQuery(scope domain.Scope) Query {
	return Query{Scope: scope}
}

// Table is the remote structured store as seen by one entity type.
type Table[T any] interface {
	Name() string
	Select(ctx context.Context, q Query) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	// Insert stores row and returns the stored version, including generated
	// columns and defaults.
	Insert(ctx context.Context, row *T) (*T, error)
	Update(ctx context.Context, id string, fields domain.Fields) (*T, error)
	Delete(ctx context.Context, id string) error
}

// Store bundles the tables of the workspace schema.
type Store struct {
	Workspaces    Table[domain.Workspace]
	Members       Table[domain.Member]
	Tasks         Table[domain.Task]
	Projects      Table[domain.Project]
	Documents     Table[domain.Document]
	Comments      Table[domain.Comment]
	Meetings      Table[domain.Meeting]
	Notifications Table[domain.Notification]
	Activity      Table[domain.Activity]
	Lookup        Lookup
	Credentials   CredentialRepository
}

// Lookup covers the few unscoped reads that identify a row by a unique key.
type Lookup interface {
	WorkspaceByJoinCode(ctx context.Context, code string) (*domain.Workspace, error)
	MemberByEmail(ctx context.Context, email string) (*domain.Member, error)
	InsertNotifications(ctx context.Context, rows []domain.Notification) error
}

// CredentialRepository stores password hashes apart from member profiles.
type CredentialRepository interface {
	Get(ctx context.Context, email string) (*domain.Credential, error)
	Save(ctx context.Context, cred *domain.Credential) error
}
