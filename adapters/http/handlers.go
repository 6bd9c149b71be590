package authhttp

import (
	"net/http"

	jwtkit "github.com/PaulFidika/walletauth/jwt"
	"go.uber.org/zap"
)

const routePrefix = "/siwe-wallet-agnostic"

// Route is one wallet endpoint. Path is relative to the mount point.
type Route struct {
	Method  string
	Path    string
	Handler http.Handler
}

// JWKSHandler returns a handler for GET /.well-known/jwks.json.
func (s *Service) JWKSHandler() http.Handler { return JWKSHandler(s.sessions) }

// Routes lists the wallet endpoints with session checks already applied, for
// mounting on routers other than http.ServeMux.
func (s *Service) Routes() []Route {
	var tokens TokenVerifier
	if s.sessions != nil {
		tokens = s.sessions
	}
	required := Required(tokens, s.cookie.Name)
	return []Route{
		{http.MethodGet, routePrefix + "/nonce", http.HandlerFunc(s.handleNonceGET)},
		{http.MethodPost, routePrefix + "/verify", http.HandlerFunc(s.handleVerifyPOST)},
		{http.MethodPost, routePrefix + "/link", required(http.HandlerFunc(s.handleLinkPOST))},
		{http.MethodPost, routePrefix + "/unlink", required(http.HandlerFunc(s.handleUnlinkPOST))},
		{http.MethodGet, routePrefix + "/wallets", required(http.HandlerFunc(s.handleWalletsGET))},
	}
}

// APIHandler returns a handler that serves the wallet routes under
// /siwe-wallet-agnostic/* and the JWKS document. It is intended to be
// mounted at the root of the host's mux.
func (s *Service) APIHandler() http.Handler {
	if s == nil || s.svc == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { serverErr(w) })
	}

	mux := http.NewServeMux()
	for _, rt := range s.Routes() {
		mux.Handle(rt.Method+" "+rt.Path, rt.Handler)
	}
	mux.Handle("GET /.well-known/jwks.json", s.JWKSHandler())

	h := http.Handler(mux)
	h = s.metrics.Middleware(h)
	h = RequestLogger(s.logger)(h)
	return h
}

// Logger returns the logger set with WithLogger.
func (s *Service) Logger() *zap.Logger { return s.logger }

// Metrics returns the collectors set with WithMetrics, or nil.
func (s *Service) Metrics() *HTTPMetrics { return s.metrics }

// CookieName is the session cookie accepted by Required.
func (s *Service) CookieName() string { return s.cookie.Name }

// Sessions returns the session issuer, which also verifies tokens.
func (s *Service) Sessions() *jwtkit.Issuer { return s.sessions }
