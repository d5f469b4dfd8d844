package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/promoops/artaudit/internal/credentials"
)

// HandleAPIKey persists the local credential override tier, so the UI can
// offer key setup when the environment tier is absent.
func (h *Handler) HandleAPIKey(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		var request struct {
			APIKey string `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := credentials.SaveOverride(request.APIKey); err != nil {
			h.writeError(w, "Failed to save API key: "+err.Error(), http.StatusBadRequest)
			return
		}
		h.writeJSON(w, map[string]any{"saved": true})

	case "DELETE":
		if err := credentials.ClearOverride(); err != nil {
			h.writeError(w, "Failed to clear API key: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, map[string]any{"cleared": true})

	case "GET":
		_, err := credentials.Resolve()
		h.writeJSON(w, map[string]any{"configured": err == nil})

	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
