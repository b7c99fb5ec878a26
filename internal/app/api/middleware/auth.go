package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/fatflowers/paybridge/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
)

const (
	RoleAdmin = "admin"
	keyRole   = "role"
)

// Claims are the session claims issued by the storefront. Subject carries the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

var errMissingToken = errors.New("missing bearer token")

func parseToken(header, secret string) (*Claims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, errMissingToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AuthMiddleware requires a valid HS256 session token and exposes the user id
// under logctx.KeyUserID.
func AuthMiddleware(secret string, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, nil))
			return
		}
		claims, err := parseToken(c.GetHeader("Authorization"), secret)
		if err != nil {
			logctx.FromGin(c, log).Infow("auth_rejected", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, nil))
			return
		}

		c.Set(logctx.KeyUserID, claims.Subject)
		c.Set(keyRole, claims.Role)
		ctx := context.WithValue(c.Request.Context(), logctx.KeyUserID, claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		if l, ok := c.Get(logctx.KeyLogger); ok {
			if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
				setRequestLogger(c, lg.With("user_id", claims.Subject))
			}
		}

		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(keyRole) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, nil))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id set by AuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(logctx.KeyUserID)
}
