package repository

import (
	"context"
	"time"

	"github.com/fastygo/teamspace/domain"
)

type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, ttlSeconds int) error
	// DeleteForMember revokes every session of a member and returns the ids.
	DeleteForMember(ctx context.Context, memberID string) ([]string, error)
}

// ResetTokenRepository keeps single-use password reset tokens.
type ResetTokenRepository interface {
	Issue(ctx context.Context, token, email string, ttl time.Duration) error
	// Consume returns the email bound to token and invalidates it.
	Consume(ctx context.Context, token string) (string, error)
}
