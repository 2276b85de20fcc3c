package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/sportsfest/registration/pkg/errors"
	"github.com/sportsfest/registration/pkg/jwt"
	"github.com/sportsfest/registration/pkg/response"
)

// Context keys set by RequireAuth.
const (
	ctxUserID           = "user_id"
	ctxOrganizationID   = "organization_id"
	ctxOrganizationSlug = "organization_slug"
)

// AuthMiddleware verifies the session token issued by the account service.
type AuthMiddleware struct {
	jwtManager *jwt.Manager
}

// NewAuthMiddleware creates the bearer token middleware.
func NewAuthMiddleware(jwtManager *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// RequireAuth rejects requests without a valid "Authorization: Bearer <token>".
//
//	api := r.Group("/api/v1")
//	api.Use(auth.RequireAuth())
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Error(c, apperrors.ErrInvalidToken)
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ParseToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxOrganizationID, claims.OrganizationID)
		c.Set(ctxOrganizationSlug, claims.OrganizationSlug)
		c.Next()
	}
}

// GetOrganization returns the organization the session acts for.
func GetOrganization(c *gin.Context) (id uint, slug string) {
	return c.GetUint(ctxOrganizationID), c.GetString(ctxOrganizationSlug)
}
