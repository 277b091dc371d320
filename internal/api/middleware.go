package api

import (
	"errors"
	"fmt"
	"strings"

	"alihamza/deceptron/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Constants for context keys
const (
	ContextUsernameKey = "username"
)

const msgNotLoggedIn = "Not logged in"

// AuthMiddleware creates a Gin middleware that binds the authenticated
// username into the request context. Identity travels in the token with
// every call, so concurrent UI connections never share or clobber a
// process-wide current user.
//
// Failures answer with the uniform envelope rather than a bare status:
// the bridge contract promises the UI a structured result on every call.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			fail(c, msgNotLoggedIn)
			c.Abort()
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			fail(c, msgNotLoggedIn)
			c.Abort()
			return
		}
		tokenString := parts[1]

		claims := &service.Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				fail(c, "Session expired, please log in again")
			} else {
				fail(c, msgNotLoggedIn)
			}
			c.Abort()
			return
		}
		if !token.Valid || claims.Username == "" {
			fail(c, msgNotLoggedIn)
			c.Abort()
			return
		}

		c.Set(ContextUsernameKey, claims.Username)
		c.Next()
	}
}

// Helper function to get the bound username from context (used by handlers).
func getUsernameFromContext(c *gin.Context) (string, error) {
	raw, exists := c.Get(ContextUsernameKey)
	if !exists {
		return "", errors.New("username not found in context")
	}
	username, ok := raw.(string)
	if !ok || username == "" {
		return "", errors.New("invalid username in context")
	}
	return username, nil
}
