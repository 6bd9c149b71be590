package authhttp

import (
	"net/http"

	"github.com/PaulFidika/walletauth/core"
)

type verifyRequest struct {
	Message   string  `json:"message" validate:"required,max=8192"`
	Signature string  `json:"signature" validate:"required,max=65600"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=320"`
}

type userJSON struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Image         *string `json:"image"`
	WalletAddress string  `json:"walletAddress"`
	ChainID       uint64  `json:"chainId"`
}

type verifyResponse struct {
	Token   string   `json:"token"`
	Success bool     `json:"success"`
	User    userJSON `json:"user"`
}

func (s *Service) handleVerifyPOST(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := s.bind(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	r = s.withRequestMeta(r)

	in := core.VerifyRequest{Message: req.Message, Signature: req.Signature}
	if req.Email != nil {
		in.Email = *req.Email
	}
	res, err := s.svc.Verify(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, res.Session)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, verifyResponse{
		Token:   res.Session.Token,
		Success: true,
		User: userJSON{
			ID:            res.User.ID,
			Name:          res.User.Name,
			Email:         res.User.Email,
			Image:         res.User.Image,
			WalletAddress: res.Wallet.Address,
			ChainID:       res.Wallet.ChainID,
		},
	})
}
