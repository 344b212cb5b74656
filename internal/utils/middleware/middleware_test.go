package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creditlab/payment-service/internal/module/auth"
	"github.com/creditlab/payment-service/internal/utils/requestctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	claims *auth.Claims
	err    error
}

func (s *stubValidator) ValidateToken(token string) (*auth.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func newAuthRouter(validator JWTValidator, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append([]gin.HandlerFunc{RequireAuth(validator)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": GetUserID(c).String(),
			"role":    GetRole(c),
			"bearer":  requestctx.BearerToken(c.Request.Context()),
		})
	})
	router.GET("/protected", handlers...)
	return router
}

func perform(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set(AuthorizationHeader, authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()
	validator := &stubValidator{claims: &auth.Claims{UserID: userID, Role: auth.RoleUser}}

	t.Run("valid token passes and propagates identity", func(t *testing.T) {
		router := newAuthRouter(validator)
		w := perform(router, "Bearer good-token")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
		assert.Contains(t, w.Body.String(), auth.RoleUser)
		// Raw bearer is stashed for outbound forwarding.
		assert.Contains(t, w.Body.String(), "good-token")
	})

	t.Run("missing header rejected", func(t *testing.T) {
		router := newAuthRouter(validator)
		w := perform(router, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("non-bearer header rejected", func(t *testing.T) {
		router := newAuthRouter(validator)
		w := perform(router, "Basic dXNlcjpwYXNz")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		router := newAuthRouter(&stubValidator{err: errors.New("expired")})
		w := perform(router, "Bearer stale-token")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})
}

func TestRequireRoles(t *testing.T) {
	t.Run("allowed role passes", func(t *testing.T) {
		validator := &stubValidator{claims: &auth.Claims{UserID: uuid.New(), Role: auth.RoleAdmin}}
		router := newAuthRouter(validator, RequireRoles(auth.RoleAdmin))

		w := perform(router, "Bearer token")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("disallowed role gets 403", func(t *testing.T) {
		validator := &stubValidator{claims: &auth.Claims{UserID: uuid.New(), Role: auth.RoleUser}}
		router := newAuthRouter(validator, RequireRoles(auth.RoleAdmin, auth.RoleService))

		w := perform(router, "Bearer token")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

type stubLimiter struct {
	allowed   bool
	remaining int
	err       error
	lastKey   string
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	s.lastKey = key
	return s.allowed, s.remaining, s.err
}

func newLimitedRouter(limiter RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RateLimit(limiter, RateLimitConfig{Limit: 5, Window: time.Minute}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimit(t *testing.T) {
	t.Run("allowed request passes with headers", func(t *testing.T) {
		limiter := &stubLimiter{allowed: true, remaining: 4}
		router := newLimitedRouter(limiter)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "4", w.Header().Get(RateLimitRemaining))
		assert.Equal(t, "5", w.Header().Get(RateLimitLimit))
	})

	t.Run("exhausted limit gets 429", func(t *testing.T) {
		limiter := &stubLimiter{allowed: false, remaining: 0}
		router := newLimitedRouter(limiter)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("nil limiter disables limiting", func(t *testing.T) {
		router := newLimitedRouter(nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("redis down")}
		router := newLimitedRouter(limiter)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
