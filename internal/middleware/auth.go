package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
)

// User value keys set on authenticated requests.
const (
	KeyMemberID  = "member_id"
	KeySessionID = "session_id"
)

// SessionChecker confirms that the session named in a token was not revoked.
type SessionChecker interface {
	Authenticate(ctx context.Context, sessionID string) (*domain.Session, error)
}

// JWTAuth accepts HS256 access tokens carrying member_id and session_id
// claims. With a non-nil checker the session must still exist.
func JWTAuth(secret string, sessions SessionChecker, timeout time.Duration, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				unauthorized(ctx)
				return
			}

			token, err := jwt.Parse(tokenString, keyFunc)
			if err != nil || !token.Valid {
				logger.Warn("invalid jwt token", zap.Error(err))
				unauthorized(ctx)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				unauthorized(ctx)
				return
			}
			memberID, _ := claims[KeyMemberID].(string)
			sessionID, _ := claims[KeySessionID].(string)
			if memberID == "" || sessionID == "" {
				logger.Warn("jwt token without member or session")
				unauthorized(ctx)
				return
			}

			if sessions != nil {
				checkCtx, cancel := context.WithTimeout(context.Background(), timeout)
				session, err := sessions.Authenticate(checkCtx, sessionID)
				cancel()
				if err != nil || session.MemberID != memberID {
					logger.Info("session rejected", zap.String("session_id", sessionID), zap.Error(err))
					unauthorized(ctx)
					return
				}
			}

			ctx.SetUserValue(KeyMemberID, memberID)
			ctx.SetUserValue(KeySessionID, sessionID)
			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetBodyString(`{"status":"error","code":"UNAUTHORIZED","error":"unauthorized"}`)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		// EventSource cannot set headers.
		return string(ctx.QueryArgs().Peek("access_token"))
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
