package domain

import "time"

// Session represents an authentication session stored in Redis.
type Session struct {
	ID        string            `json:"id"`
	MemberID  string            `json:"member_id"`
	Provider  string            `json:"provider"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sign-in providers.
const (
	ProviderPassword = "password"
	ProviderOAuth    = "oauth"
)

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// Credential holds the password hash of a member signing in with email and password.
type Credential struct {
	MemberID     string    `json:"member_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is a verified external sign-in.
type Identity struct {
	UID       string
	Email     string
	Name      string
	AvatarURL string
}

// SessionEventKind tells observers whether a session started or ended.
type SessionEventKind string

const (
	SessionSignedIn  SessionEventKind = "signed_in"
	SessionSignedOut SessionEventKind = "signed_out"
)

// SessionEvent is delivered to session observers.
type SessionEvent struct {
	Kind      SessionEventKind
	SessionID string
	MemberID  string
	At        time.Time
}
