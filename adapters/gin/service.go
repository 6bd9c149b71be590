package authgin

import (
	authhttp "github.com/PaulFidika/walletauth/adapters/http"
	"github.com/gin-gonic/gin"
)

// Service mounts the wallet routes of an authhttp.Service on gin routers.
type Service struct {
	api *authhttp.Service
}

// New wraps h. Configure storage, logging and metrics on h before mounting.
func New(h *authhttp.Service) *Service { return &Service{api: h} }

// HTTP returns the wrapped net/http service.
func (s *Service) HTTP() *authhttp.Service { return s.api }

// RegisterGin mounts the wallet routes on the provided router or group.
// Pass a prefixed group (e.g., r.Group("/api/v1")) to mount under a prefix.
func (s *Service) RegisterGin(r gin.IRouter) *Service {
	g := r.Group("")
	g.Use(RequestLogger(s.api.Logger()), Metrics(s.api.Metrics()))
	for _, rt := range s.api.Routes() {
		g.Handle(rt.Method, rt.Path, gin.WrapH(rt.Handler))
	}
	return s
}

// GinRegisterJWKS mounts the JWKS endpoint at the absolute root path.
func (s *Service) GinRegisterJWKS(root gin.IRouter) *Service {
	root.GET("/.well-known/jwks.json", gin.WrapH(s.api.JWKSHandler()))
	return s
}
