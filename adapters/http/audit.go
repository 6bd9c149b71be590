package authhttp

import (
	"net/http"

	"github.com/PaulFidika/walletauth/core"
)

// withRequestMeta tags the request context with the client IP and user agent
// for auth events.
func (s *Service) withRequestMeta(r *http.Request) *http.Request {
	ip := ""
	if s.clientIP != nil {
		ip = s.clientIP(r)
	}
	return r.WithContext(core.WithRequestMeta(r.Context(), ip, r.UserAgent()))
}
