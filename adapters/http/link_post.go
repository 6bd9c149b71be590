package authhttp

import (
	"net/http"

	"github.com/PaulFidika/walletauth/core"
)

type linkRequest struct {
	Message   string `json:"message" validate:"required,max=8192"`
	Signature string `json:"signature" validate:"required,max=65600"`
}

type walletRef struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chainId"`
}

func (s *Service) handleLinkPOST(w http.ResponseWriter, r *http.Request) {
	cl, err := getClaims(r.Context())
	if err != nil {
		unauthorized(w)
		return
	}
	var req linkRequest
	if err := s.bind(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	r = s.withRequestMeta(r)

	wallet, err := s.svc.LinkWallet(r.Context(), cl.UserID, core.LinkRequest{Message: req.Message, Signature: req.Signature})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"wallet":  walletRef{Address: wallet.Address, ChainID: wallet.ChainID},
	})
}
