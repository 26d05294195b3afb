package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pedicare/clinic-api/internal/handler"
	"github.com/pedicare/clinic-api/internal/model"
	"github.com/pedicare/clinic-api/pkg/auth"
)

const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

type AuthMiddleware struct {
	validator auth.TokenValidator
}

func NewAuthMiddleware(validator auth.TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate verifies the bearer token and sets the caller identity in
// the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.validator.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID.String())
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// RequireStaff rejects callers without receptionist/admin privileges. Must
// run after Authenticate.
func (m *AuthMiddleware) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := model.UserRole(c.GetString(ContextUserRole))
		if !role.IsStaff() {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("staff access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFromContext rebuilds the caller identity set by Authenticate.
func ActorFromContext(c *gin.Context) (model.Actor, bool) {
	id, err := uuid.Parse(c.GetString(ContextUserID))
	if err != nil {
		return model.Actor{}, false
	}
	return model.Actor{
		ID:   id,
		Role: model.UserRole(c.GetString(ContextUserRole)),
	}, true
}
