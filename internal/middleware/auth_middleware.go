package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"thegrid/internal/auth"
)

// OperatorKey is the gin context key holding the authenticated operator.
const OperatorKey = "operator"

func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	issuer := auth.NewIssuer(secret, 0)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		operator, err := issuer.Parse(parts[1])
		switch {
		case errors.Is(err, auth.ErrInvalidClaims):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid operator in token"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(OperatorKey, operator)
		c.Next()
	}
}
