package redis

import (
	"context"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

type resetTokenRepository struct {
	client *redislib.Client
	prefix string
}

// NewResetTokenRepository stores password reset tokens as expiring keys.
func NewResetTokenRepository(client *redislib.Client, prefix string) repository.ResetTokenRepository {
	return &resetTokenRepository{client: client, prefix: keyPrefix(prefix, "reset")}
}

func (r *resetTokenRepository) Issue(ctx context.Context, token, email string, ttl time.Duration) error {
	if token == "" || email == "" {
		return domain.ErrInvalidPayload
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return r.client.Set(ctx, r.prefix+token, email, ttl).Err()
}

func (r *resetTokenRepository) Consume(ctx context.Context, token string) (string, error) {
	email, err := r.client.GetDel(ctx, r.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", domain.ErrResetTokenInvalid
		}
		return "", err
	}
	return email, nil
}
