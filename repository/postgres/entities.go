package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// NewStore wires every table of the workspace schema onto pool.
func NewStore(pool *pgxpool.Pool) repository.Store {
	return repository.Store{
		Workspaces:    newTable(pool, workspaceEntity),
		Members:       newTable(pool, memberEntity),
		Tasks:         newTable(pool, taskEntity),
		Projects:      newTable(pool, projectEntity),
		Documents:     newTable(pool, documentEntity),
		Comments:      newTable(pool, commentEntity),
		Meetings:      newTable(pool, meetingEntity),
		Notifications: newTable(pool, notificationEntity),
		Activity:      newTable(pool, activityEntity),
		Lookup:        &lookup{pool: pool},
		Credentials:   &credentialRepository{pool: pool},
	}
}

var workspaceEntity = entity[domain.Workspace]{
	table:    domain.TableWorkspaces,
	columns:  []string{"id", "name", "join_code", "description", "created_by", "created_at"},
	insert:   []string{"id", "name", "join_code", "description", "created_by"},
	mutable:  columnSet("name", "description"),
	notFound: domain.ErrWorkspaceNotFound,
	id:       func(w *domain.Workspace) *string { return &w.ID },
	values: func(w *domain.Workspace) []interface{} {
		return []interface{}{w.ID, w.Name, w.JoinCode, nullString(w.Description), nullString(w.CreatedBy)}
	},
	scan: scanWorkspace,
}

func scanWorkspace(row scanner) (*domain.Workspace, error) {
	var w domain.Workspace
	if err := row.Scan(&w.ID, &w.Name, &w.JoinCode, &w.Description, &w.CreatedBy, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

var memberColumns = []string{
	"id", "email", "name", "avatar_url", "workspace_id", "role",
	"title", "department", "phone", "location", "created_at", "updated_at",
}

var memberEntity = entity[domain.Member]{
	table:    domain.TableMembers,
	columns:  memberColumns,
	insert:   []string{"id", "email", "name", "avatar_url", "workspace_id", "role", "title", "department", "phone", "location"},
	mutable:  columnSet("name", "avatar_url", "workspace_id", "role", "title", "department", "phone", "location"),
	touch:    true,
	notFound: domain.ErrMemberNotFound,
	id:       func(m *domain.Member) *string { return &m.ID },
	values: func(m *domain.Member) []interface{} {
		var role interface{}
		if m.Role != "" {
			role = string(m.Role)
		}
		return []interface{}{
			m.ID, m.Email, m.Name, nullString(m.AvatarURL), nullString(m.WorkspaceID), role,
			nullString(m.Title), nullString(m.Department), nullString(m.Phone), nullString(m.Location),
		}
	},
	scan: scanMember,
}

func scanMember(row scanner) (*domain.Member, error) {
	var (
		m    domain.Member
		role *string
	)
	if err := row.Scan(
		&m.ID, &m.Email, &m.Name, &m.AvatarURL, &m.WorkspaceID, &role,
		&m.Title, &m.Department, &m.Phone, &m.Location, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Role = domain.MemberRole(derefString(role))
	return &m, nil
}

var taskEntity = entity[domain.Task]{
	table: domain.TableTasks,
	columns: []string{
		"id", "workspace_id", "title", "description", "status", "priority",
		"project_id", "assigned_to", "due_date", "created_by", "created_at", "updated_at",
	},
	insert:   []string{"id", "workspace_id", "title", "description", "status", "priority", "project_id", "assigned_to", "due_date", "created_by"},
	defaults: map[string]string{"status": string(domain.TaskTodo), "priority": string(domain.PriorityMedium)},
	mutable:  columnSet("title", "description", "status", "priority", "project_id", "assigned_to", "due_date"),
	touch:    true,
	notFound: domain.ErrTaskNotFound,
	id:       func(t *domain.Task) *string { return &t.ID },
	values: func(t *domain.Task) []interface{} {
		return []interface{}{
			t.ID, t.WorkspaceID, t.Title, nullString(t.Description), string(t.Status), string(t.Priority),
			nullString(t.ProjectID), nullString(t.AssignedTo), nullTime(t.DueDate), nullString(t.CreatedBy),
		}
	},
	scan: scanTask,
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		t                domain.Task
		status, priority string
		due              *time.Time
	)
	if err := row.Scan(
		&t.ID, &t.WorkspaceID, &t.Title, &t.Description, &status, &priority,
		&t.ProjectID, &t.AssignedTo, &due, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.Priority(priority)
	if due != nil {
		utc := due.UTC()
		t.DueDate = &utc
	}
	return &t, nil
}

var projectEntity = entity[domain.Project]{
	table: domain.TableProjects,
	columns: []string{
		"id", "workspace_id", "name", "description", "status", "priority",
		"due_date", "assigned_members", "created_by", "created_at", "updated_at",
	},
	insert:   []string{"id", "workspace_id", "name", "description", "status", "priority", "due_date", "assigned_members", "created_by"},
	defaults: map[string]string{"status": string(domain.ProjectActive), "priority": string(domain.PriorityMedium)},
	mutable:  columnSet("name", "description", "status", "priority", "due_date", "assigned_members"),
	touch:    true,
	notFound: domain.ErrProjectNotFound,
	id:       func(p *domain.Project) *string { return &p.ID },
	values: func(p *domain.Project) []interface{} {
		members := p.AssignedMembers
		if members == nil {
			members = []string{}
		}
		return []interface{}{
			p.ID, p.WorkspaceID, p.Name, nullString(p.Description), string(p.Status), string(p.Priority),
			nullTime(p.DueDate), members, nullString(p.CreatedBy),
		}
	},
	scan: scanProject,
}

func scanProject(row scanner) (*domain.Project, error) {
	var (
		p                domain.Project
		status, priority string
		due              *time.Time
	)
	if err := row.Scan(
		&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &status, &priority,
		&due, &p.AssignedMembers, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = domain.ProjectStatus(status)
	p.Priority = domain.Priority(priority)
	if due != nil {
		utc := due.UTC()
		p.DueDate = &utc
	}
	return &p, nil
}

var documentEntity = entity[domain.Document]{
	table: domain.TableDocuments,
	columns: []string{
		"id", "workspace_id", "name", "description", "category", "file_url",
		"file_size", "file_type", "project_id", "task_id", "uploaded_by", "created_at",
	},
	insert:   []string{"id", "workspace_id", "name", "description", "category", "file_url", "file_size", "file_type", "project_id", "task_id", "uploaded_by"},
	defaults: map[string]string{"category": string(domain.CategoryOther)},
	mutable:  columnSet("name", "description", "category", "project_id", "task_id"),
	notFound: domain.ErrDocumentNotFound,
	id:       func(d *domain.Document) *string { return &d.ID },
	values: func(d *domain.Document) []interface{} {
		return []interface{}{
			d.ID, d.WorkspaceID, d.Name, nullString(d.Description), string(d.Category), d.FileURL,
			d.FileSize, nullString(d.FileType), nullString(d.ProjectID), nullString(d.TaskID), d.UploadedBy,
		}
	},
	scan: scanDocument,
}

func scanDocument(row scanner) (*domain.Document, error) {
	var (
		d        domain.Document
		category string
	)
	if err := row.Scan(
		&d.ID, &d.WorkspaceID, &d.Name, &d.Description, &category, &d.FileURL,
		&d.FileSize, &d.FileType, &d.ProjectID, &d.TaskID, &d.UploadedBy, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	d.Category = domain.DocumentCategory(category)
	return &d, nil
}

var commentEntity = entity[domain.Comment]{
	table:   domain.TableComments,
	columns: []string{"id", "document_id", "workspace_id", "author_id", "text", "created_at"},
	insert:  []string{"id", "document_id", "workspace_id", "author_id", "text"},
	mutable: columnSet("text"),
	id:      func(c *domain.Comment) *string { return &c.ID },
	values: func(c *domain.Comment) []interface{} {
		return []interface{}{c.ID, c.DocumentID, c.WorkspaceID, c.AuthorID, c.Text}
	},
	scan: func(row scanner) (*domain.Comment, error) {
		var c domain.Comment
		if err := row.Scan(&c.ID, &c.DocumentID, &c.WorkspaceID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		return &c, nil
	},
}

var meetingEntity = entity[domain.Meeting]{
	table: domain.TableMeetings,
	columns: []string{
		"id", "workspace_id", "title", "description", "start_time", "end_time",
		"location", "meeting_link", "created_by", "created_at",
	},
	insert:  []string{"id", "workspace_id", "title", "description", "start_time", "end_time", "location", "meeting_link", "created_by"},
	mutable: columnSet("title", "description", "start_time", "end_time", "location", "meeting_link"),
	id:      func(m *domain.Meeting) *string { return &m.ID },
	values: func(m *domain.Meeting) []interface{} {
		return []interface{}{
			m.ID, m.WorkspaceID, m.Title, nullString(m.Description), m.StartTime.UTC(), m.EndTime.UTC(),
			nullString(m.Location), nullString(m.MeetingLink), nullString(m.CreatedBy),
		}
	},
	scan: func(row scanner) (*domain.Meeting, error) {
		var m domain.Meeting
		if err := row.Scan(
			&m.ID, &m.WorkspaceID, &m.Title, &m.Description, &m.StartTime, &m.EndTime,
			&m.Location, &m.MeetingLink, &m.CreatedBy, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		return &m, nil
	},
}

var notificationEntity = entity[domain.Notification]{
	table:   domain.TableNotifications,
	columns: []string{"id", "workspace_id", "recipient_id", "type", "data", "read", "created_at"},
	insert:  []string{"id", "workspace_id", "recipient_id", "type", "data", "read"},
	mutable: columnSet("read"),
	id:      func(n *domain.Notification) *string { return &n.ID },
	values: func(n *domain.Notification) []interface{} {
		return []interface{}{n.ID, n.WorkspaceID, n.RecipientID, string(n.Type), marshalMap(n.Data), n.Read}
	},
	scan: scanNotification,
}

func scanNotification(row scanner) (*domain.Notification, error) {
	var (
		n    domain.Notification
		kind string
		data []byte
	)
	if err := row.Scan(&n.ID, &n.WorkspaceID, &n.RecipientID, &kind, &data, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(kind)
	n.Data = unmarshalMap(data)
	return &n, nil
}

var activityEntity = entity[domain.Activity]{
	table:   domain.TableActivity,
	columns: []string{"id", "workspace_id", "actor_id", "action", "entity", "entity_id", "data", "created_at"},
	insert:  []string{"id", "workspace_id", "actor_id", "action", "entity", "entity_id", "data"},
	id:      func(a *domain.Activity) *string { return &a.ID },
	values: func(a *domain.Activity) []interface{} {
		return []interface{}{a.ID, a.WorkspaceID, a.ActorID, a.Action, a.Entity, a.EntityID, marshalMap(a.Data)}
	},
	scan: func(row scanner) (*domain.Activity, error) {
		var (
			a    domain.Activity
			data []byte
		)
		if err := row.Scan(&a.ID, &a.WorkspaceID, &a.ActorID, &a.Action, &a.Entity, &a.EntityID, &data, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Data = unmarshalMap(data)
		return &a, nil
	},
}
