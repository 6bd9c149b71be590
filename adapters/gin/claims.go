package authgin

import (
	authhttp "github.com/PaulFidika/walletauth/adapters/http"
	"github.com/gin-gonic/gin"
)

const claimsKey = "walletauth.claims"

// ClaimsFromGin returns the session claims set by AuthRequired.
func ClaimsFromGin(c *gin.Context) (authhttp.Claims, bool) {
	if v, ok := c.Get(claimsKey); ok {
		if cl, ok := v.(authhttp.Claims); ok {
			return cl, true
		}
	}
	return authhttp.ClaimsFromContext(c.Request.Context())
}

// RequestID returns the id assigned by RequestLogger.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
