package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"booking-frontend/internal/auth"
)

const credentialKey = "credential"

// CredentialMiddleware reads an optional bearer credential into the context.
// A malformed header is rejected; a missing one means anonymous.
func CredentialMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := auth.FromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(credentialKey, cred)
		c.Next()
	}
}

// RequireCredential rejects anonymous requests and JWT-shaped credentials
// that are already expired.
func (a *App) RequireCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := credential(c).Check(a.now())
		if errors.Is(err, auth.ErrNoCredential) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

func credential(c *gin.Context) auth.Credential {
	if v, ok := c.Get(credentialKey); ok {
		if cred, ok := v.(auth.Credential); ok {
			return cred
		}
	}
	return auth.Credential{}
}
