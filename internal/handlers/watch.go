package handlers

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/transcriptorhq/transcriptor/internal/jobs"
	"github.com/transcriptorhq/transcriptor/internal/types"
)

// WatchHandler streams job status snapshots over a WebSocket so the
// browser can render live progress without polling /status.
type WatchHandler struct {
	store *jobs.Store
}

// NewWatchHandler creates the watch handler.
func NewWatchHandler(store *jobs.Store) *WatchHandler {
	return &WatchHandler{store: store}
}

// Handle pushes the job's snapshot once per second. When the job reaches a
// terminal state the final snapshot is sent and the connection closed.
func (h *WatchHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("id")
	if _, err := h.store.Get(jobID); err != nil {
		c.WriteJSON(map[string]string{"error": "Job not found", "code": "ERR_NOT_FOUND"})
		return
	}

	log.Printf("WebSocket watcher attached to job %s", jobID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		snap, err := h.store.Snapshot(jobID)
		if err != nil {
			return
		}
		if err := c.WriteJSON(snap); err != nil {
			log.Printf("WebSocket write error for job %s: %v", jobID, err)
			return
		}
		if snap.Status == types.StatusCompleted || snap.Status == types.StatusFailed {
			return
		}
		<-ticker.C
	}
}
