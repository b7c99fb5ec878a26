package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "jwt-secret"

func token(t *testing.T, secret, sub, role string, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:           role,
		StandardClaims: jwt.StandardClaims{Subject: sub, ExpiresAt: exp.Unix()},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newRouter(log *zap.SugaredLogger, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware(), RequestLoggerMiddleware(log), AccessLogMiddleware(), AuthMiddleware(testSecret, log))
	r.Use(extra...)
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  UserID(c),
			"ctx_user": logctx.UserID(c.Request.Context()),
			"trace":    logctx.TraceID(c.Request.Context()),
		})
	})
	return r
}

func do(r http.Handler, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(zap.NewNop().Sugar())
	valid := token(t, testSecret, "user-1", "", time.Now().Add(time.Hour))

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"no bearer prefix", valid, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + token(t, "other", "user-1", "", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + token(t, testSecret, "user-1", "", time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"no subject", "Bearer " + token(t, testSecret, "", "", time.Now().Add(time.Hour)), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, map[string]string{"Authorization": tc.header})
			require.Equal(t, tc.code, w.Code)
		})
	}

	w := do(r, map[string]string{"Authorization": "Bearer " + valid, "X-Request-ID": "req-1"})
	require.JSONEq(t, `{"user_id":"user-1","ctx_user":"user-1","trace":"req-1"}`, w.Body.String())
	require.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
}

func TestAuthMiddleware_RejectsNoneAlgorithm(t *testing.T) {
	r := newRouter(zap.NewNop().Sugar())
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{StandardClaims: jwt.StandardClaims{Subject: "user-1"}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, do(r, map[string]string{"Authorization": "Bearer " + s}).Code)
}

func TestAdminOnly(t *testing.T) {
	r := newRouter(zap.NewNop().Sugar(), AdminOnly())

	user := token(t, testSecret, "user-1", "", time.Now().Add(time.Hour))
	require.Equal(t, http.StatusForbidden, do(r, map[string]string{"Authorization": "Bearer " + user}).Code)

	admin := token(t, testSecret, "ops-1", RoleAdmin, time.Now().Add(time.Hour))
	require.Equal(t, http.StatusOK, do(r, map[string]string{"Authorization": "Bearer " + admin}).Code)
}

func TestAccessLog_UsesRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(zap.New(core).Sugar())
	admin := token(t, testSecret, "user-7", "", time.Now().Add(time.Hour))

	do(r, map[string]string{"Authorization": "Bearer " + admin, "X-Request-ID": "req-7"})

	entries := logs.FilterMessage("http_access").All()
	require.Len(t, entries, 1)
	require.Equal(t, "req-7", entries[0].ContextMap()["trace_id"])
	require.EqualValues(t, http.StatusOK, entries[0].ContextMap()["status"])
}

func TestTraceMiddleware_GeneratesID(t *testing.T) {
	r := newRouter(zap.NewNop().Sugar())
	w := do(r, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Len(t, w.Header().Get("X-Request-ID"), 36)
}
