package middleware_test

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/middleware"
)

type fakeSessions struct {
	authenticateFn func(ctx context.Context, sessionID string) (*domain.Session, error)
}

func (f *fakeSessions) Authenticate(ctx context.Context, sessionID string) (*domain.Session, error) {
	return f.authenticateFn(ctx, sessionID)
}

const secret = "test-secret"

func sign(claims jwt.MapClaims, key string) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	Expect(err).NotTo(HaveOccurred())
	return token
}

var _ = Describe("JWTAuth", func() {
	var (
		sessions *fakeSessions
		handler  fasthttp.RequestHandler
		reached  bool
	)

	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"member_id":  "member-1",
			"session_id": "session-1",
			"exp":        time.Now().Add(time.Hour).Unix(),
		}
	}

	BeforeEach(func() {
		reached = false
		sessions = &fakeSessions{authenticateFn: func(_ context.Context, id string) (*domain.Session, error) {
			return &domain.Session{ID: id, MemberID: "member-1"}, nil
		}}
		handler = middleware.JWTAuth(secret, sessions, time.Second, nil)(func(ctx *fasthttp.RequestCtx) {
			reached = true
			Expect(ctx.UserValue(middleware.KeyMemberID)).To(Equal("member-1"))
			Expect(ctx.UserValue(middleware.KeySessionID)).To(Equal("session-1"))
		})
	})

	It("passes a valid bearer token through", func() {
		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.Set("Authorization", "Bearer "+sign(valid(), secret))
		handler(ctx)
		Expect(reached).To(BeTrue())
	})

	It("accepts the token as a query parameter for event streams", func() {
		ctx := &fasthttp.RequestCtx{}
		ctx.Request.SetRequestURI("/api/v1/live/tasks?access_token=" + sign(valid(), secret))
		handler(ctx)
		Expect(reached).To(BeTrue())
	})

	DescribeTable("rejects",
		func(build func() string) {
			ctx := &fasthttp.RequestCtx{}
			if token := build(); token != "" {
				ctx.Request.Header.Set("Authorization", "Bearer "+token)
			}
			handler(ctx)
			Expect(reached).To(BeFalse())
			Expect(ctx.Response.StatusCode()).To(Equal(fasthttp.StatusUnauthorized))
		},
		Entry("a missing token", func() string { return "" }),
		Entry("a token signed with another key", func() string { return sign(valid(), "other") }),
		Entry("an expired token", func() string {
			c := valid()
			c["exp"] = time.Now().Add(-time.Minute).Unix()
			return sign(c, secret)
		}),
		Entry("a token without a session", func() string {
			c := valid()
			delete(c, "session_id")
			return sign(c, secret)
		}),
	)

	It("rejects a revoked session", func() {
		sessions.authenticateFn = func(context.Context, string) (*domain.Session, error) {
			return nil, domain.ErrSessionNotFound
		}
		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.Set("Authorization", "Bearer "+sign(valid(), secret))
		handler(ctx)
		Expect(reached).To(BeFalse())
		Expect(ctx.Response.StatusCode()).To(Equal(fasthttp.StatusUnauthorized))
	})
})
