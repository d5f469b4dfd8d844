package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/promoops/artaudit/internal/queue"
)

type Handler struct {
	scheduler *queue.Scheduler
}

func New(scheduler *queue.Scheduler) *Handler {
	return &Handler{
		scheduler: scheduler,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}
