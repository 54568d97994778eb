package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fastygo/teamspace/domain"
)

// Sessions keeps auth sessions in process memory.
type Sessions struct {
	mu    sync.Mutex
	items map[string]domain.Session
}

func NewSessions() *Sessions {
	return &Sessions{items: make(map[string]domain.Session)}
}

func (s *Sessions) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[id]
	if !ok || session.IsExpired(time.Now()) {
		delete(s.items, id)
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (s *Sessions) Save(_ context.Context, session *domain.Session) error {
	if session == nil {
		return domain.ErrInvalidPayload
	}
	s.mu.Lock()
	s.items[session.ID] = *session
	s.mu.Unlock()
	return nil
}

func (s *Sessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

func (s *Sessions) Extend(_ context.Context, id string, ttlSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.ExpiresAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	s.items[id] = session
	return nil
}

func (s *Sessions) DeleteForMember(_ context.Context, memberID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revoked []string
	for id, session := range s.items {
		if session.MemberID == memberID {
			revoked = append(revoked, id)
			delete(s.items, id)
		}
	}
	sort.Strings(revoked)
	return revoked, nil
}

// ResetTokens keeps password reset tokens in process memory.
type ResetTokens struct {
	mu     sync.Mutex
	tokens map[string]resetToken
}

type resetToken struct {
	email   string
	expires time.Time
}

func NewResetTokens() *ResetTokens {
	return &ResetTokens{tokens: make(map[string]resetToken)}
}

func (r *ResetTokens) Issue(_ context.Context, token, email string, ttl time.Duration) error {
	r.mu.Lock()
	r.tokens[token] = resetToken{email: email, expires: time.Now().Add(ttl)}
	r.mu.Unlock()
	return nil
}

func (r *ResetTokens) Consume(_ context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	delete(r.tokens, token)
	if !ok || time.Now().After(t.expires) {
		return "", domain.ErrResetTokenInvalid
	}
	return t.email, nil
}
