package authhttp

import (
	"net/http"

	jwtkit "github.com/PaulFidika/walletauth/jwt"
)

// JWKSHandler serves the public JWKS document of the session signer.
func JWKSHandler(issuer *jwtkit.Issuer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if issuer == nil {
			serverErr(w)
			return
		}
		ks, err := issuer.JWKS()
		if err != nil {
			serverErr(w)
			return
		}
		jwtkit.ServeJWKS(w, r, ks)
	})
}
