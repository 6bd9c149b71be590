package authhttp

import (
	"net/http"

	jwtkit "github.com/PaulFidika/walletauth/jwt"
)

// TokenVerifier validates a session token. *jwtkit.Issuer implements it.
type TokenVerifier interface {
	Verify(token string) (*jwtkit.SessionClaims, error)
}

// Required accepts a Bearer token or the session cookie, verifies it, and
// stores the session claims in the request context.
func Required(v TokenVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r.Header.Get("Authorization"))
			if tokenStr == "" && cookieName != "" {
				if c, err := r.Cookie(cookieName); err == nil {
					tokenStr = c.Value
				}
			}
			if tokenStr == "" || v == nil {
				unauthorized(w)
				return
			}
			sc, err := v.Verify(tokenStr)
			if err != nil {
				unauthorized(w)
				return
			}
			cl := Claims{
				UserID:    sc.Subject,
				Address:   sc.Address,
				ChainID:   sc.ChainID,
				SessionID: sc.ID,
			}
			next.ServeHTTP(w, r.WithContext(setClaims(r.Context(), cl)))
		})
	}
}
