package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/tastelanc/backoffice/internal/auth/domain"
	obscontext "github.com/tastelanc/backoffice/internal/observability/context"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
)

const (
	contextUserIDKey = "user_id"
	contextRoleKey   = "role"
	contextAccessKey = "tier_access"
)

// AuthRequired accepts a bearer access token issued by Login and puts the
// caller in both the gin and request contexts.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.authsvc.ParseToken(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, claims.UserID)
		c.Set(contextRoleKey, string(claims.Role))
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), string(claims.Role), claims.UserID))
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

type actor struct {
	ID   string
	Role authdomain.Role
}

func actorFromContext(c *gin.Context) (actor, bool) {
	id := strings.TrimSpace(c.GetString(contextUserIDKey))
	role := strings.TrimSpace(c.GetString(contextRoleKey))
	if id == "" || role == "" {
		return actor{}, false
	}
	return actor{ID: id, Role: authdomain.Role(role)}, true
}

func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), string(a.Role), a.ID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// can reports whether the caller's role carries a grant, for handlers that
// widen or narrow results rather than reject outright.
func (s *Server) can(c *gin.Context, object, action string) bool {
	a, ok := actorFromContext(c)
	if !ok {
		return false
	}
	return s.authzSvc.Allowed(string(a.Role), object, action)
}

// RequireFeature rejects requests for a restaurant whose effective tier does
// not unlock feature. The resolved access view is left in the gin context.
func (s *Server) RequireFeature(feature tierdomain.Feature) gin.HandlerFunc {
	return func(c *gin.Context) {
		restaurantID := strings.TrimSpace(c.Param("restaurant_id"))
		access, err := s.tierSvc.Check(c.Request.Context(), restaurantID, feature)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(contextAccessKey, access)
		c.Next()
	}
}
