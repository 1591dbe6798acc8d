package security

import (
	"fmt"
	"net/http"
	"strings"

	"labstock/pkg/roles"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTMiddleware validates the bearer token and stashes its claims on the
// request context.
func JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			if len(jwtSecret) == 0 {
				return nil, fmt.Errorf("JWT_SECRET is not set")
			}
			return jwtSecret, nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims := token.Claims.(jwt.MapClaims)
		c.Set("userID", claims["userID"])
		c.Set("role", claims["role"])
		c.Next()
	}
}

// Authorize gates a route on one capability of the caller's role.
func Authorize(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleName, ok := CurrentRole(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient permissions"})
			c.Abort()
			return
		}

		role := roles.Role(roleName)
		if !role.IsValid() || !role.May(capability) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Elevated reports whether the caller's role may act on equipment held by
// other users. Anyone who may edit an item may also return it.
func Elevated(c *gin.Context) bool {
	roleName, ok := CurrentRole(c)
	if !ok {
		return false
	}
	return roles.Role(roleName).May(roles.CapUpdate)
}
