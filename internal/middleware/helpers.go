// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// MustGetBusinessID gets the business id from context or panics. Only
// for handlers mounted behind Auth().
func MustGetBusinessID(c *gin.Context) int64 {
	id, exists := GetBusinessID(c)
	if !exists {
		panic("business_id not found in context")
	}
	return id
}

// GetRoles gets the principal's roles from context.
func GetRoles(c *gin.Context) []string {
	roles, exists := c.Get("roles")
	if !exists {
		return []string{}
	}

	rolesList, ok := roles.([]string)
	if !ok {
		return []string{}
	}

	return rolesList
}

// HasRole checks whether the principal carries a role.
func HasRole(c *gin.Context, role string) bool {
	for _, r := range GetRoles(c) {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin checks whether the principal is a platform admin.
func IsAdmin(c *gin.Context) bool {
	return HasRole(c, "admin") || HasRole(c, "super_admin")
}
