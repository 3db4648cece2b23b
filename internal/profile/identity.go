package profile

import (
	"fmt"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CookieName   = "imagynex-id"
	CookieMaxAge = 365 * 24 * 60 * 60
	UserIDKey    = "userID"
)

// NewID returns a fresh client ID.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid v7: %w", err)
	}
	return id.String(), nil
}

// IdentityMiddleware reads the signed identity cookie and stores the client
// ID in the gin context. A missing, malformed or forged cookie gets a new
// ID. The profile row itself is created lazily by the handlers.
func IdentityMiddleware(signer *token.Signer, secure bool, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(CookieName); err == nil {
			if id, ok := signer.Verify(raw); ok && uuid.Validate(id) == nil {
				c.Set(UserIDKey, id)
				c.Next()
				return
			}
			log.Debug("rejected identity cookie", "cookie", raw)
		}

		id, err := NewID()
		if err != nil {
			log.Error("failed to provision identity", "error", err)
			c.AbortWithStatusJSON(500, gin.H{"error": "failed to provision identity"})
			return
		}
		c.SetCookie(CookieName, signer.Sign(id), CookieMaxAge, "/", "", secure, true)
		c.Set(UserIDKey, id)
		c.Next()
	}
}

// UserID returns the ID set by IdentityMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
