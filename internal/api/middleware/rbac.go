package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"

	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
)

// Roles understood by the admin API.
const (
	RoleAdmin  = "form:admin"
	RoleEditor = "form:editor"
	RoleViewer = "form:viewer"
)

// RequireRole lets the request through when the authenticated user holds
// one of roles. RoleAdmin always passes.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted := GetRoles(c.Request.Context())
		if len(granted) == 0 {
			Abort(c, apperrors.Forbidden("FORBIDDEN", "no roles in context"))
			return
		}
		if slices.Contains(granted, RoleAdmin) {
			c.Next()
			return
		}
		for _, r := range roles {
			if slices.Contains(granted, r) {
				c.Next()
				return
			}
		}
		Abort(c, apperrors.Forbidden("FORBIDDEN", "insufficient permissions"))
	}
}
