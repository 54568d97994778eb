package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/fastygo/teamspace/domain"
)

// Verifier checks ID tokens against the Firebase project.
type Verifier struct {
	client *auth.Client
	logger *zap.Logger
}

func NewVerifier(ctx context.Context, credentialsFile string, logger *zap.Logger) (*Verifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: init app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: auth client: %w", err)
	}
	logger.Info("firebase auth initialized")
	return &Verifier{client: client, logger: logger}, nil
}

// Verify checks an ID token issued by the OAuth popup flow.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*domain.Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	id := &domain.Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		id.Name = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		id.AvatarURL = picture
	}
	if id.Email == "" {
		v.logger.Warn("id token without email", zap.String("uid", token.UID))
	}
	return id, nil
}
