package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

const ctxOrgID = "aw_org_id"

// KeyResolver maps a hashed API key to its org.
type KeyResolver interface {
	OrgForAPIKey(ctx context.Context, keyHash string) (uuid.UUID, error)
}

// RequireOrg returns a Gin middleware that authenticates the caller by
// X-API-Key, or by an operator session Bearer token when sessions is
// non-nil, and stores the caller's org in the context.
func RequireOrg(keys KeyResolver, hasher *KeyHasher, sessions *SessionIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(APIKeyHeader); key != "" {
			keyHash := hasher.Hash(key)
			orgID, err := keys.OrgForAPIKey(c.Request.Context(), keyHash)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
				return
			}
			SetOrg(c, orgID)
			setCaller(c, Caller{Type: CallerAPIKey, ID: fingerprint(keyHash)})
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if sessions != nil && strings.HasPrefix(authHeader, "Bearer ") {
			orgID, claims, err := sessions.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
				return
			}
			SetOrg(c, orgID)
			setCaller(c, Caller{Type: CallerUser, ID: claims.Subject})
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-API-Key header required"})
	}
}

// SetOrg stores the authenticated org on c.
func SetOrg(c *gin.Context, orgID uuid.UUID) {
	c.Set(ctxOrgID, orgID)
}

// OrgFromCtx returns the org injected by RequireOrg.
func OrgFromCtx(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxOrgID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func setCaller(c *gin.Context, caller Caller) {
	caller.IP = c.ClientIP()
	c.Request = c.Request.WithContext(WithCaller(c.Request.Context(), caller))
}
