package handler

import (
	"net/http"

	"github.com/mediahub/library-notifier/internal/service"
)

// QueueHandler exposes a JSON snapshot of the pending-notification queue
// for operator visibility. Prometheus counters live at /metrics; this
// endpoint answers "which items are stuck, and how many retries in".
type QueueHandler struct {
	svc *service.LibraryService
}

func NewQueueHandler(svc *service.LibraryService) *QueueHandler {
	return &QueueHandler{svc: svc}
}

// Pending handles GET /api/v1/queue
func (h *QueueHandler) Pending(w http.ResponseWriter, r *http.Request) {
	records := h.svc.PendingSnapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"pending": records,
		"count":   len(records),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
