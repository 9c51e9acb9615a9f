package handlers

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/transcriptorhq/transcriptor/internal/jobs"
)

// DownloadHandler serves the formatted transcript of a completed job.
type DownloadHandler struct {
	store *jobs.Store
}

// NewDownloadHandler creates the download handler.
func NewDownloadHandler(store *jobs.Store) *DownloadHandler {
	return &DownloadHandler{store: store}
}

// Handle sends the transcript file, named after the original upload.
func (h *DownloadHandler) Handle(c *fiber.Ctx) error {
	jobID := c.Params("id")

	path, err := h.store.ResultPath(jobID)
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_NOT_FOUND",
		})
	case errors.Is(err, jobs.ErrNotReady):
		return c.Status(409).JSON(fiber.Map{
			"error": "Transcript not ready yet",
			"code":  "ERR_NOT_READY",
		})
	case err != nil:
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_INTERNAL",
		})
	}

	snap, err := h.store.Snapshot(jobID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_NOT_FOUND",
		})
	}

	stem := strings.TrimSuffix(snap.SourceName, filepath.Ext(snap.SourceName))
	return c.Download(path, stem+"_transcript.txt")
}
