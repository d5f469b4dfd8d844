package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/promoops/artaudit/internal/queue"
)

// HandleQueue serves the read-only queue snapshot the presentation layer
// renders after every mutation.
func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, map[string]any{
			"items":  h.scheduler.Snapshot(),
			"active": h.scheduler.Active(),
		})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleQueueItem routes the per-item and worker control operations:
//
//	POST   /api/queue/resume          force-clear a stalled worker lock
//	DELETE /api/queue/pending         cancel everything still pending
//	DELETE /api/queue/{id}            remove one item (advisory if in flight)
//	POST   /api/queue/{id}/prioritize jump an item to the front
func (h *Handler) HandleQueueItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/queue/")

	switch {
	case path == "resume" && r.Method == "POST":
		h.scheduler.ForceResume()
		h.writeJSON(w, map[string]any{"resumed": true})

	case path == "pending" && r.Method == "DELETE":
		removed := h.scheduler.CancelPending()
		h.writeJSON(w, map[string]any{"removed": removed})

	case strings.HasSuffix(path, "/prioritize") && r.Method == "POST":
		id := strings.TrimSuffix(path, "/prioritize")
		if err := h.scheduler.Prioritize(id); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, queue.ErrWorkerBusy) {
				status = http.StatusConflict
			}
			h.writeError(w, "Failed to prioritize item: "+err.Error(), status)
			return
		}
		h.writeJSON(w, map[string]any{"prioritized": id})

	case r.Method == "DELETE":
		if !h.scheduler.Remove(path) {
			h.writeError(w, "Item not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, map[string]any{"removed": path})

	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
