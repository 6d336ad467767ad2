package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/pkg/logging/logging"

	"go.uber.org/zap"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// statusFor maps an error kind onto the HTTP status returned to clients.
func statusFor(kind chem.Kind) int {
	switch kind {
	case chem.KindInvalidInput:
		return http.StatusBadRequest
	case chem.KindNotFound:
		return http.StatusNotFound
	case chem.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case chem.KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case chem.KindUpstreamServer, chem.KindUpstreamMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err as {"error": kind, "detail": message}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := chem.KindOf(err)
	status := statusFor(kind)

	detail := chem.SafeMessage(err)
	var ce *chem.Error
	if errors.As(err, &ce) && ce.Detail != "" && kind != chem.KindInternal {
		detail = chem.SafeMessage(errors.New(ce.Detail))
	}

	logger := logging.L(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request_failed", zap.Int("status", status), zap.String("kind", kind.String()), zap.Error(err))
	} else {
		logger.Info("request_rejected", zap.Int("status", status), zap.String("kind", kind.String()), zap.Error(err))
	}

	writeJSONStatus(w, status, errorBody{Error: kind.String(), Detail: detail})
}

// writeJSON is a small helper to send JSON responses consistently.
func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
