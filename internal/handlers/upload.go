package handlers

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/transcriptorhq/transcriptor/internal/jobs"
	"github.com/transcriptorhq/transcriptor/internal/transcription"
	"github.com/transcriptorhq/transcriptor/internal/types"
)

// UploadHandler accepts multipart audio uploads and registers a job for
// them. The job stays UPLOADED until /transcribe/:id starts it.
type UploadHandler struct {
	store     *jobs.Store
	uploadDir string
	maxSizeMB int
}

// NewUploadHandler creates the upload handler.
func NewUploadHandler(store *jobs.Store, uploadDir string, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		store:     store,
		uploadDir: uploadDir,
		maxSizeMB: maxSizeMB,
	}
}

// Handle processes the upload request.
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	requestName := c.FormValue("name")
	if requestName == "" {
		requestName = file.Filename
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	if !transcription.ValidateAudioFormat(file.Filename) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Unsupported audio format",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	jobID := uuid.New().String()
	extension := filepath.Ext(file.Filename)
	sourcePath := filepath.Join(h.uploadDir, fmt.Sprintf("%s%s", jobID, extension))

	if err := c.SaveFile(file, sourcePath); err != nil {
		log.Printf("Failed to save uploaded file: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	h.store.Add(jobs.NewJob(jobID, requestName, types.SourceUpload, sourcePath))
	log.Printf("Job %s created for upload %s (%d bytes)", jobID, file.Filename, file.Size)

	return c.JSON(fiber.Map{
		"job_id":   jobID,
		"filename": file.Filename,
		"message":  "File uploaded successfully, start transcription with POST /transcribe/" + jobID,
	})
}
