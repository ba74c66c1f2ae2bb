package middleware

import (
	"net/http"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/pkg/response"
)

// RequireRole creates a middleware that checks if the user has any of the required roles
// Role is read from context (set by AuthMiddleware from JWT claims)
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRoleFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}

			allowed := false
			for _, allowedRole := range allowedRoles {
				if role == allowedRole {
					allowed = true
					break
				}
			}

			if !allowed {
				response.Forbidden(w, "You don't have permission to access this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireReception is a convenience middleware for front-desk endpoints
func RequireReception(next http.Handler) http.Handler {
	return RequireRole(entity.RoleReception)(next)
}

// RequireStaff admits every clinic role
func RequireStaff(next http.Handler) http.Handler {
	return RequireRole(entity.RoleReception, entity.RoleMedication, entity.RoleDoctor)(next)
}
