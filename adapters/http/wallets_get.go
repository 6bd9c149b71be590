package authhttp

import (
	"net/http"
	"time"
)

type walletJSON struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	ChainID   uint64    `json:"chainId"`
	IsPrimary bool      `json:"isPrimary"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Service) handleWalletsGET(w http.ResponseWriter, r *http.Request) {
	cl, err := getClaims(r.Context())
	if err != nil {
		unauthorized(w)
		return
	}
	ws, err := s.svc.ListWallets(r.Context(), cl.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]walletJSON, 0, len(ws))
	for _, wa := range ws {
		out = append(out, walletJSON{
			ID:        wa.ID,
			Address:   wa.Address,
			ChainID:   wa.ChainID,
			IsPrimary: wa.IsPrimary,
			CreatedAt: wa.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"wallets": out})
}
