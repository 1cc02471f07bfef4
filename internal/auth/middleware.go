package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthrec/internal/logging"
)

const claimsKey = "auth.claims"

// RequireAuth aborts with 401 unless the request carries a valid bearer token.
func RequireAuth(m *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "missing bearer token")
			return
		}
		claims, err := m.ValidateToken(token)
		if err != nil {
			logging.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected bearer token")
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(m *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if claims, err := m.ValidateToken(token); err == nil {
				c.Set(claimsKey, claims)
			} else {
				logging.Ctx(c.Request.Context()).Debug().Err(err).Msg("ignoring invalid bearer token")
			}
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// UserID returns nil for anonymous requests.
func UserID(c *gin.Context) *uint {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return nil
	}
	id := claims.UserID
	return &id
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": msg,
	})
}
