package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

const minPasswordLength = 6

// IdentityVerifier checks ID tokens returned by the OAuth popup.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*domain.Identity, error)
}

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

type Config struct {
	Secret        string
	Issuer        string
	TokenTTL      time.Duration
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	ResetURL      string
}

// Result is returned by every successful sign-in.
type Result struct {
	Token   string          `json:"token"`
	Session *domain.Session `json:"session"`
	Member  *domain.Member  `json:"member"`
}

// Claims are carried by access tokens.
type Claims struct {
	MemberID  string `json:"member_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

type UseCase struct {
	members     repository.Table[domain.Member]
	lookup      repository.Lookup
	credentials repository.CredentialRepository
	sessions    repository.SessionRepository
	resets      repository.ResetTokenRepository
	verifier    IdentityVerifier
	mailer      Mailer
	cfg         Config
	now         func() time.Time
	logger      *zap.Logger

	obsMu     sync.RWMutex
	observers map[uint64]func(domain.SessionEvent)
	nextObs   uint64
}

// Deps groups the collaborators of the auth use case.
type Deps struct {
	Store       repository.Store
	Sessions    repository.SessionRepository
	ResetTokens repository.ResetTokenRepository
	Verifier    IdentityVerifier
	Mailer      Mailer
}

func New(deps Deps, cfg Config, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = cfg.SessionTTL
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return &UseCase{
		members:     deps.Store.Members,
		lookup:      deps.Store.Lookup,
		credentials: deps.Store.Credentials,
		sessions:    deps.Sessions,
		resets:      deps.ResetTokens,
		verifier:    deps.Verifier,
		mailer:      deps.Mailer,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger,
		observers:   make(map[uint64]func(domain.SessionEvent)),
	}
}

// SignUpInput is the registration form.
type SignUpInput struct {
	Email    string
	Name     string
	Password string
}

// SignUp registers a member with a password and signs it in.
func (uc *UseCase) SignUp(ctx context.Context, in SignUpInput) (*Result, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.Invalid(fmt.Sprintf("Password must be at least %d characters.", minPasswordLength))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	if _, err := uc.credentials.Get(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrBadCredentials) {
		return nil, err
	}

	member, err := uc.lookup.MemberByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrMemberNotFound):
		member, err = uc.members.Insert(ctx, &domain.Member{Email: email, Name: name})
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	if err := uc.savePassword(ctx, member, in.Password); err != nil {
		return nil, err
	}
	return uc.startSession(ctx, member, domain.ProviderPassword)
}

// SignIn checks an email and password pair.
func (uc *UseCase) SignIn(ctx context.Context, email, password string) (*Result, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, domain.ErrBadCredentials
	}
	cred, err := uc.credentials.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		uc.logger.Info("password sign-in rejected", zap.String("member_id", cred.MemberID))
		return nil, domain.ErrBadCredentials
	}
	member, err := uc.members.Get(ctx, cred.MemberID)
	if err != nil {
		return nil, err
	}
	return uc.startSession(ctx, member, domain.ProviderPassword)
}

// SignInWithIDToken completes the OAuth popup flow. The member profile is
// created on first sign-in and its name and avatar refreshed afterwards.
func (uc *UseCase) SignInWithIDToken(ctx context.Context, idToken string) (*Result, error) {
	if uc.verifier == nil {
		return nil, domain.NewError(domain.ErrCodeInvalid, "OAuth sign-in is not configured")
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, domain.ErrUnauthorized
	}
	identity, err := uc.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "sign-in failed", err)
	}
	member, err := uc.upsertMember(ctx, identity)
	if err != nil {
		return nil, err
	}
	return uc.startSession(ctx, member, domain.ProviderOAuth)
}

func (uc *UseCase) upsertMember(ctx context.Context, id *domain.Identity) (*domain.Member, error) {
	email, err := normalizeEmail(id.Email)
	if err != nil {
		return nil, err
	}
	existing, err := uc.lookup.MemberByEmail(ctx, email)
	if errors.Is(err, domain.ErrMemberNotFound) {
		name := id.Name
		if name == "" {
			name = strings.Split(email, "@")[0]
		}
		return uc.members.Insert(ctx, &domain.Member{
			Email:     email,
			Name:      name,
			AvatarURL: domain.NullIfBlank(id.AvatarURL),
		})
	}
	if err != nil {
		return nil, err
	}

	fields := domain.Fields{}
	if id.Name != "" && id.Name != existing.Name {
		fields["name"] = id.Name
	}
	if id.AvatarURL != "" && id.AvatarURL != domain.Deref(existing.AvatarURL) {
		fields["avatar_url"] = id.AvatarURL
	}
	if len(fields) == 0 {
		return existing, nil
	}
	return uc.members.Update(ctx, existing.ID, fields)
}

// SignOut revokes the session.
func (uc *UseCase) SignOut(ctx context.Context, sessionID string) error {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	uc.emit(domain.SessionEvent{Kind: domain.SessionSignedOut, SessionID: sessionID, MemberID: session.MemberID, At: uc.now()})
	return nil
}

// Refresh extends the session and issues a new access token.
func (uc *UseCase) Refresh(ctx context.Context, sessionID string) (*Result, error) {
	session, err := uc.Authenticate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, sessionID, int(uc.cfg.SessionTTL.Seconds())); err != nil {
		return nil, err
	}
	session.ExpiresAt = uc.now().Add(uc.cfg.SessionTTL)
	member, err := uc.members.Get(ctx, session.MemberID)
	if err != nil {
		return nil, err
	}
	token, err := uc.issueToken(session)
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, Session: session, Member: member}, nil
}

// Authenticate returns the live session with id.
func (uc *UseCase) Authenticate(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(uc.now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Actor loads the workspace context of a signed-in member.
func (uc *UseCase) Actor(ctx context.Context, memberID string) (domain.Actor, *domain.Member, error) {
	if memberID == "" {
		return domain.Actor{}, nil, domain.ErrUnauthorized
	}
	member, err := uc.members.Get(ctx, memberID)
	if err != nil {
		return domain.Actor{}, nil, err
	}
	return domain.ActorFor(member), member, nil
}

// Observe registers fn for sign-in and sign-out events until cancel is called.
func (uc *UseCase) Observe(fn func(domain.SessionEvent)) (cancel func()) {
	uc.obsMu.Lock()
	uc.nextObs++
	id := uc.nextObs
	uc.observers[id] = fn
	uc.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			uc.obsMu.Lock()
			delete(uc.observers, id)
			uc.obsMu.Unlock()
		})
	}
}

func (uc *UseCase) emit(ev domain.SessionEvent) {
	uc.obsMu.RLock()
	fns := make([]func(domain.SessionEvent), 0, len(uc.observers))
	for _, fn := range uc.observers {
		fns = append(fns, fn)
	}
	uc.obsMu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// RequestPasswordReset mails a reset link. Unknown addresses succeed silently.
func (uc *UseCase) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if _, err := uc.lookup.MemberByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			uc.logger.Debug("password reset for unknown email")
			return nil
		}
		return err
	}
	token := uuid.NewString()
	if err := uc.resets.Issue(ctx, token, email, uc.cfg.ResetTokenTTL); err != nil {
		return err
	}
	if uc.mailer == nil {
		return domain.NewError(domain.ErrCodeInternal, "mail delivery is not configured")
	}
	return uc.mailer.SendPasswordReset(ctx, email, uc.resetLink(token))
}

func (uc *UseCase) resetLink(token string) string {
	base := uc.cfg.ResetURL
	if base == "" {
		base = "/reset-password"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

// ResetPassword consumes a reset token and sets a new password.
func (uc *UseCase) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < minPasswordLength {
		return domain.Invalid(fmt.Sprintf("Password must be at least %d characters.", minPasswordLength))
	}
	email, err := uc.resets.Consume(ctx, token)
	if err != nil {
		return err
	}
	member, err := uc.lookup.MemberByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := uc.savePassword(ctx, member, password); err != nil {
		return err
	}

	revoked, err := uc.sessions.DeleteForMember(ctx, member.ID)
	if err != nil {
		uc.logger.Warn("password reset left sessions active", zap.String("member_id", member.ID), zap.Error(err))
		return nil
	}
	now := uc.now()
	for _, id := range revoked {
		uc.emit(domain.SessionEvent{Kind: domain.SessionSignedOut, SessionID: id, MemberID: member.ID, At: now})
	}
	return nil
}

func (uc *UseCase) savePassword(ctx context.Context, member *domain.Member, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "failed to hash password", err)
	}
	return uc.credentials.Save(ctx, &domain.Credential{
		MemberID:     member.ID,
		Email:        member.Email,
		PasswordHash: string(hash),
		UpdatedAt:    uc.now(),
	})
}

func (uc *UseCase) startSession(ctx context.Context, member *domain.Member, provider string) (*Result, error) {
	now := uc.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		MemberID:  member.ID,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.cfg.SessionTTL),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	token, err := uc.issueToken(session)
	if err != nil {
		return nil, err
	}
	uc.emit(domain.SessionEvent{Kind: domain.SessionSignedIn, SessionID: session.ID, MemberID: member.ID, At: now})
	return &Result{Token: token, Session: session, Member: member}, nil
}

func (uc *UseCase) issueToken(session *domain.Session) (string, error) {
	if uc.cfg.Secret == "" {
		return "", domain.NewError(domain.ErrCodeInternal, "token secret is not configured")
	}
	now := uc.now()
	expires := now.Add(uc.cfg.TokenTTL)
	if session.ExpiresAt.Before(expires) {
		expires = session.ExpiresAt
	}
	claims := Claims{
		MemberID:  session.MemberID,
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    uc.cfg.Issuer,
			Subject:   session.MemberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(uc.cfg.Secret))
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeInternal, "failed to sign token", err)
	}
	return signed, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.Invalid("Please enter a valid email address.")
	}
	return email, nil
}
