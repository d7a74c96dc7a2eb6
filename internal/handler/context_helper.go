package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/FerventBolt/tesda-lms-api/internal/middleware"
	"github.com/FerventBolt/tesda-lms-api/internal/models"
)

// claimsFromContext pulls the verified JWT claims the auth middleware
// stored. Routes outside the authenticated group get nil.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// studentScoped reports whether the caller is a student, and therefore
// limited to records they own. Staff and admin see everything.
func studentScoped(claims *models.JWTClaims) bool {
	return claims != nil && claims.Role == models.RoleStudent
}
