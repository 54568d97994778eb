package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// SessionStore keeps one JSON value per session plus a set of session ids per
// member, so every session of a member can be revoked at once.
type SessionStore struct {
	client  *redislib.Client
	session string
	member  string
	ttl     time.Duration
}

var _ repository.SessionRepository = (*SessionStore)(nil)

func NewSessionRepository(client *redislib.Client, prefix string, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		client:  client,
		session: keyPrefix(prefix, "session"),
		member:  keyPrefix(prefix, "member_sessions"),
		ttl:     ttl,
	}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.session+id).Bytes()
	if errors.Is(err, redislib.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to load session", err)
	}
	session := new(domain.Session)
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "corrupt session", err)
	}
	return session, nil
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" || session.MemberID == "" {
		return domain.ErrInvalidPayload
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if !session.ExpiresAt.After(now) {
		session.ExpiresAt = now.Add(s.ttl)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ttl := session.ExpiresAt.Sub(now)
	indexTTL := s.ttl
	if ttl > indexTTL {
		indexTTL = ttl
	}
	index := s.member + session.MemberID
	_, err = s.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.Set(ctx, s.session+session.ID, raw, ttl)
		pipe.SAdd(ctx, index, session.ID)
		pipe.Expire(ctx, index, indexTTL)
		return nil
	})
	return err
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.Del(ctx, s.session+id)
		pipe.SRem(ctx, s.member+session.MemberID, id)
		return nil
	})
	return err
}

func (s *SessionStore) Extend(ctx context.Context, id string, ttlSeconds int) error {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = s.ttl
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	session.ExpiresAt = time.Now().Add(ttl)
	return s.Save(ctx, session)
}

// DeleteForMember revokes every session of memberID and returns their ids.
// Ids whose session already expired are dropped from the index silently.
func (s *SessionStore) DeleteForMember(ctx context.Context, memberID string) ([]string, error) {
	index := s.member + memberID
	ids, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to list sessions", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redislib.IntCmd, len(ids))
	_, err = s.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.Del(ctx, s.session+id)
		}
		pipe.Del(ctx, index)
		return nil
	})
	if err != nil {
		return nil, err
	}

	revoked := make([]string, 0, len(ids))
	for i, id := range ids {
		if cmds[i].Val() > 0 {
			revoked = append(revoked, id)
		}
	}
	return revoked, nil
}

func keyPrefix(prefix, kind string) string {
	if prefix == "" {
		return kind + ":"
	}
	return prefix + ":" + kind + ":"
}
