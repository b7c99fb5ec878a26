package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	up := gin.New()
	RegisterHealthRoutes(up, pingerFunc(func(context.Context) error { return nil }))
	require.Equal(t, http.StatusOK, get(up, "/healthz").Code)
	require.Equal(t, http.StatusOK, get(up, "/readyz").Code)

	down := gin.New()
	RegisterHealthRoutes(down, pingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") }))
	require.Equal(t, http.StatusOK, get(down, "/healthz").Code)
	w := get(down, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotContains(t, w.Body.String(), "refused")
}
