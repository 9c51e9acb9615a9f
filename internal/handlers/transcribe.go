package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/transcriptorhq/transcriptor/internal/jobs"
)

// TranscribeHandler starts processing for a previously uploaded job.
type TranscribeHandler struct {
	runner *jobs.Runner
}

// NewTranscribeHandler creates the transcribe handler.
func NewTranscribeHandler(runner *jobs.Runner) *TranscribeHandler {
	return &TranscribeHandler{runner: runner}
}

// Handle starts the job named in the path.
func (h *TranscribeHandler) Handle(c *fiber.Ctx) error {
	jobID := c.Params("id")

	switch err := h.runner.Start(jobID); {
	case err == nil:
		return c.JSON(fiber.Map{
			"job_id":  jobID,
			"status":  "processing",
			"message": "Transcription started",
		})
	case errors.Is(err, jobs.ErrNotFound):
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_NOT_FOUND",
		})
	case errors.Is(err, jobs.ErrAlreadyProcessed):
		return c.Status(409).JSON(fiber.Map{
			"error": "Job was already processed",
			"code":  "ERR_ALREADY_PROCESSED",
		})
	case errors.Is(err, jobs.ErrShuttingDown):
		return c.Status(503).JSON(fiber.Map{
			"error": "Server is shutting down",
			"code":  "ERR_SHUTTING_DOWN",
		})
	default:
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_START_FAILED",
		})
	}
}
