package authhttp

import (
	"encoding/json"
	"net/http"

	"github.com/PaulFidika/walletauth/core"
	"go.uber.org/zap"
)

type errResp struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendErr(w http.ResponseWriter, status int, e *core.Error) {
	writeJSON(w, status, errResp{Error: e.Code, Message: e.Message})
}

func unauthorized(w http.ResponseWriter) { sendErr(w, http.StatusUnauthorized, core.ErrUnauthorized) }
func serverErr(w http.ResponseWriter)    { sendErr(w, http.StatusInternalServerError, core.ErrInternal) }

// statusFor maps an error kind to its HTTP status. Conflicts are 400.
func statusFor(k core.Kind) int {
	switch k {
	case core.KindBadRequest, core.KindConflict:
		return http.StatusBadRequest
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Internal errors are logged with their cause and
// returned as an opaque server_error.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := core.AsError(err)
	status := statusFor(e.Kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		serverErr(w)
		return
	}
	s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.String("code", e.Code), zap.Error(err))
	sendErr(w, status, e)
}
