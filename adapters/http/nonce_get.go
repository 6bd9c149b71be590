package authhttp

import "net/http"

func (s *Service) handleNonceGET(w http.ResponseWriter, r *http.Request) {
	nonce, err := s.svc.IssueNonce(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]string{"nonce": nonce})
}
