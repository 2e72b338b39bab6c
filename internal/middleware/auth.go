package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/hexmap-backend-go/pkg/response"
)

// AdminRole is the role claim required by AdminAuth
const AdminRole = "admin"

// AdminClaims are the JWT claims accepted for cache management
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// extractToken returns the bearer token of an Authorization header
func extractToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// AdminAuth requires an HS256 bearer token signed with secret and carrying
// role=admin. An empty secret disables the check.
func AdminAuth(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	key := []byte(secret)

	return func(c *gin.Context) {
		raw := extractToken(c.GetHeader("Authorization"))
		if raw == "" {
			response.Unauthorized(c, "Missing bearer token")
			return
		}

		var claims AdminClaims
		token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			response.Unauthorized(c, "Invalid token")
			return
		}
		if claims.Role != AdminRole {
			response.Error(c, http.StatusForbidden, "Admin role required")
			return
		}

		c.Next()
	}
}
