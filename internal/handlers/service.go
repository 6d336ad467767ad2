package handlers

import (
	"net/http"

	"mixsafe-gateway/internal/summary"
	"mixsafe-gateway/pkg/logging/logging"

	"go.uber.org/zap"
)

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"service":       "Chemical Reactivity Analysis API",
		"status":        "running",
		"version":       h.Version,
		"ai_configured": h.Endpoint.Configured(),
	})
}

type healthResponse struct {
	Status string `json:"status"`
	AIAPI  string `json:"ai_api"`
	AIURL  string `json:"ai_url"`
}

// Health handles GET and HEAD /health. The gateway itself is always
// reported healthy; ai_api describes the summarization service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", AIAPI: "not configured", AIURL: "Not set"}

	if url := h.Endpoint.Get(); url != "" {
		resp.AIURL = url
		switch h.Prober.HealthWithin(r.Context(), url, h.HealthTimeout) {
		case summary.Healthy:
			resp.AIAPI = "connected"
		case summary.Unhealthy:
			resp.AIAPI = "error"
		default:
			resp.AIAPI = "unreachable"
		}
	}
	writeJSON(w, resp)
}

// SetAIURL handles POST /set-ai-url. The URL comes from the url query
// parameter or a {"url": "..."} body.
func (h *Handler) SetAIURL(w http.ResponseWriter, r *http.Request) {
	req := setURLRequest{URL: r.URL.Query().Get("url")}
	if req.URL == "" {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	} else if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	previous := h.Endpoint.Get()
	current := h.Endpoint.Set(req.URL)

	logging.L(r.Context()).Info("ai_url_updated", zap.String("previous", previous), zap.String("current", current))
	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "AI API URL updated to: " + current,
	})
}
