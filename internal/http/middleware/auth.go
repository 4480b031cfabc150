// JWT bearer authentication middleware.
//
// This file resolves the caller's identity from an Authorization: Bearer
// token signed with an HMAC secret and stashes it under "userID" in the Gin
// context, where handlers pick it up. Identity resolution is deliberately
// soft by default: requests without a token pass through and fall back to the
// X-User-ID demo header downstream, which keeps local development and tests
// friction-free. Set Required to enforce a valid token on every request.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the JWT payload this service issues and accepts.
type AuthClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// AuthOptions configures the JWTAuth middleware.
type AuthOptions struct {
	// Secret is the HMAC signing key. When empty the middleware is a no-op,
	// so a deployment without JWT configured still works in demo mode.
	Secret string
	// Required rejects requests lacking a valid token with 401 instead of
	// letting them through anonymously.
	Required bool
}

// JWTAuth validates the Authorization bearer token (when present) and sets
// "userID" in the context. Invalid tokens are always a 401; absent tokens are
// only rejected when opts.Required is set.
func JWTAuth(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Secret == "" {
			c.Next()
			return
		}
		// CORS preflights carry no credentials.
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if opts.Required {
				unauthorized(c, "authorization token required")
				return
			}
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "authorization header must be: Bearer <token>")
			return
		}

		claims := &AuthClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(opts.Secret), nil
		})
		if err != nil || !token.Valid || claims.UserID == "" {
			unauthorized(c, "token validation failed")
			return
		}

		c.Set("userID", claims.UserID)
		c.Next()
	}
}

// unauthorized aborts with the standard error envelope shape. Kept local to
// avoid importing the handlers package from middleware.
func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
