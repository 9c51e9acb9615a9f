package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/transcriptorhq/transcriptor/internal/jobs"
)

// StatusHandler reports a job's current state.
type StatusHandler struct {
	store *jobs.Store
}

// NewStatusHandler creates the status handler.
func NewStatusHandler(store *jobs.Store) *StatusHandler {
	return &StatusHandler{store: store}
}

// Handle returns the job snapshot for the id in the path.
func (h *StatusHandler) Handle(c *fiber.Ctx) error {
	snap, err := h.store.Snapshot(c.Params("id"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.JSON(snap)
}
