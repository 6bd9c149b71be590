package authhttp

import "net/http"

type unlinkRequest struct {
	Address string  `json:"address" validate:"required,eth_addr"`
	ChainID *uint64 `json:"chainId,omitempty" validate:"omitempty,min=1,max=2147483647"`
}

func (s *Service) handleUnlinkPOST(w http.ResponseWriter, r *http.Request) {
	cl, err := getClaims(r.Context())
	if err != nil {
		unauthorized(w)
		return
	}
	var req unlinkRequest
	if err := s.bind(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	r = s.withRequestMeta(r)

	if err := s.svc.UnlinkWallet(r.Context(), cl.UserID, req.Address, req.ChainID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
