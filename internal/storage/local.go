package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/transcriptorhq/transcriptor/internal/types"
)

// LocalStorage writes finished transcript reports to the local filesystem.
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage creates a storage handler rooted at outputDir.
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{outputDir: outputDir}
}

// SaveReport writes the report text and a metadata sidecar under a dated
// directory tree (outputs/2026/08/29/) and returns the report path.
func (ls *LocalStorage) SaveReport(jobID, requestName, report string, result *types.TranscriptionResult) (string, error) {
	now := time.Now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %v", err)
	}

	// e.g. 20260829_143022_team_standup.txt
	timestamp := now.Format("20060102_150405")
	baseFilename := fmt.Sprintf("%s_%s", timestamp, sanitizeFilename(requestName))

	txtPath := filepath.Join(dateDir, baseFilename+".txt")
	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")

	if err := os.WriteFile(txtPath, []byte(report), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %v", err)
	}

	metaJSON, err := json.MarshalIndent(reportMetadata(jobID, requestName, txtPath, result, now), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %v", err)
	}
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %v", err)
	}

	return txtPath, nil
}

// reportMetadata builds the sidecar document saved next to every report.
func reportMetadata(jobID, requestName, localPath string, result *types.TranscriptionResult, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"job_id":        jobID,
		"request_name":  requestName,
		"language":      result.LanguageCode,
		"confidence":    result.Confidence,
		"speaker_count": result.SpeakerCount(),
		"word_count":    len(strings.Fields(result.Text)),
		"utterances":    result.Utterances,
		"local_path":    localPath,
		"created_at":    at,
	}
}

var filenameSanitizer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

// sanitizeFilename makes a request name safe to use as a file name.
func sanitizeFilename(name string) string {
	result := filenameSanitizer.Replace(name)
	if result == "" {
		result = "untitled"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
