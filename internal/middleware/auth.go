package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/pkg/auth"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

const ContextActor = "actor"

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate verifies the bearer JWT and stores the caller in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.AuthenticationRequired("missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithError(c, apperrors.AuthenticationRequired("invalid authorization format"))
			return
		}

		actor, err := m.jwt.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			httputil.RespondWithError(c, apperrors.AuthenticationRequired("invalid token"))
			return
		}

		c.Set(ContextActor, actor)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			httputil.RespondWithError(c, apperrors.AuthenticationRequired(""))
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, apperrors.Forbidden("permission denied"))
	}
}

// ActorFrom returns the authenticated caller set by Authenticate.
func ActorFrom(c *gin.Context) (*model.Actor, bool) {
	v, exists := c.Get(ContextActor)
	if !exists {
		return nil, false
	}
	actor, ok := v.(*model.Actor)
	return actor, ok && actor != nil
}
