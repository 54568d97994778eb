package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/teamspace/domain"
)

type lookup struct {
	pool *pgxpool.Pool
}

func (l *lookup) WorkspaceByJoinCode(ctx context.Context, code string) (*domain.Workspace, error) {
	query := fmt.Sprintf("SELECT %s FROM workspaces WHERE join_code = $1", strings.Join(workspaceEntity.columns, ", "))
	ws, err := scanWorkspace(l.pool.QueryRow(ctx, query, domain.NormalizeJoinCode(code)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInvalidJoinCode
	}
	return ws, err
}

func (l *lookup) MemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	query := fmt.Sprintf("SELECT %s FROM members WHERE email = $1", strings.Join(memberColumns, ", "))
	m, err := scanMember(l.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMemberNotFound
	}
	return m, err
}

// InsertNotifications writes a fan-out in one round trip.
func (l *lookup) InsertNotifications(ctx context.Context, rows []domain.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	const query = `
	INSERT INTO notifications (id, workspace_id, recipient_id, type, data, read)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	batch := &pgx.Batch{}
	for i := range rows {
		n := &rows[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		batch.Queue(query, n.ID, n.WorkspaceID, n.RecipientID, string(n.Type), marshalMap(n.Data), n.Read)
	}
	return l.pool.SendBatch(ctx, batch).Close()
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

func (r *credentialRepository) Get(ctx context.Context, email string) (*domain.Credential, error) {
	const query = `
	SELECT member_id, email, password_hash, updated_at
	FROM member_credentials
	WHERE email = $1
	`
	var cred domain.Credential
	err := r.pool.QueryRow(ctx, query, strings.ToLower(email)).
		Scan(&cred.MemberID, &cred.Email, &cred.PasswordHash, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) Save(ctx context.Context, cred *domain.Credential) error {
	if cred == nil {
		return domain.ErrInvalidPayload
	}
	const query = `
	INSERT INTO member_credentials (member_id, email, password_hash, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (email) DO UPDATE
	SET password_hash = EXCLUDED.password_hash,
		member_id = EXCLUDED.member_id,
		updated_at = NOW()
	RETURNING updated_at
	`
	return r.pool.QueryRow(ctx, query, cred.MemberID, strings.ToLower(cred.Email), cred.PasswordHash).
		Scan(&cred.UpdatedAt)
}
