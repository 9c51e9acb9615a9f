package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/transcriptorhq/transcriptor/internal/jobs"
	"github.com/transcriptorhq/transcriptor/internal/types"
)

// LinkHandler downloads an audio file from an HTTP(S) URL, registers a job
// for it, and starts the job immediately. Google Drive share links are
// rewritten to their direct-download form first.
type LinkHandler struct {
	store     *jobs.Store
	runner    *jobs.Runner
	uploadDir string
	client    *http.Client
}

// NewLinkHandler creates the link handler.
func NewLinkHandler(store *jobs.Store, runner *jobs.Runner, uploadDir string) *LinkHandler {
	return &LinkHandler{
		store:     store,
		runner:    runner,
		uploadDir: uploadDir,
		client:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// LinkRequest represents the request body.
type LinkRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Handle processes link requests.
func (h *LinkHandler) Handle(c *fiber.Ctx) error {
	var req LinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	if req.URL == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "URL is required",
			"code":  "ERR_NO_URL",
		})
	}

	downloadURL, err := resolveDownloadURL(req.URL)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_INVALID_URL",
		})
	}

	if req.Name == "" {
		req.Name = "linked_file"
	}

	jobID := uuid.New().String()
	sourcePath := filepath.Join(h.uploadDir, jobID+extensionFromURL(downloadURL))

	log.Printf("Downloading %s for job %s", downloadURL, jobID)

	resp, err := h.client.Get(downloadURL)
	if err != nil {
		log.Printf("Failed to download %s: %v", downloadURL, err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to download file",
			"code":  "ERR_DOWNLOAD_FAILED",
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return c.Status(400).JSON(fiber.Map{
			"error": "File not accessible (may be private or doesn't exist)",
			"code":  "ERR_FILE_NOT_ACCESSIBLE",
		})
	}

	out, err := os.Create(sourcePath)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to save downloaded file",
			"code":  "ERR_SAVE_FAILED",
		})
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to write downloaded file",
			"code":  "ERR_WRITE_FAILED",
		})
	}

	h.store.Add(jobs.NewJob(jobID, req.Name, types.SourceLink, sourcePath))

	if err := h.runner.Start(jobID); err != nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "Could not start transcription",
			"code":  "ERR_START_FAILED",
		})
	}

	return c.JSON(fiber.Map{
		"job_id":   jobID,
		"filename": req.Name,
		"message":  "File downloaded, transcription started",
	})
}

// resolveDownloadURL validates the link and rewrites Google Drive share
// links to a URL that serves the raw file.
func resolveDownloadURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("only http(s) URLs are supported")
	}

	if strings.HasSuffix(u.Host, "drive.google.com") {
		fileID := extractGDriveFileID(raw)
		if fileID == "" {
			return "", fmt.Errorf("unrecognized Google Drive link format")
		}
		return fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID), nil
	}

	return raw, nil
}

// extensionFromURL guesses an audio extension from the URL path, falling
// back to .mp3 when the path has none.
func extensionFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".mp3"
	}
	if ext := strings.ToLower(filepath.Ext(u.Path)); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".mp3"
}

var (
	gdrivePathID  = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	gdriveQueryID = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
)

// extractGDriveFileID extracts the file ID from the common Drive URL forms.
func extractGDriveFileID(url string) string {
	// https://drive.google.com/file/d/{ID}/view
	if matches := gdrivePathID.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	// https://drive.google.com/open?id={ID}
	if matches := gdriveQueryID.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	return ""
}
