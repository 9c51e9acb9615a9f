package transcription

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrConversion means ffmpeg exited non-zero; any partial output is
// unusable.
var ErrConversion = errors.New("audio conversion failed")

// Formats the provider accepts directly vs. ones normalized through ffmpeg
// first.
var (
	supportedFormats   = []string{".mp3", ".wav", ".m4a", ".flac", ".aac", ".ogg", ".opus"}
	convertibleFormats = []string{".m4a", ".aac", ".ogg", ".opus"}
)

// ValidateAudioFormat checks if the file format is supported
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// commandRunner lets tests stand in for the ffmpeg binary.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Converter normalizes audio files into provider-friendly MP3 via ffmpeg.
type Converter struct {
	tempDir string
	runner  commandRunner
}

// NewConverter creates a converter writing normalized files under tempDir.
func NewConverter(tempDir string) *Converter {
	return &Converter{tempDir: tempDir, runner: execRunner{}}
}

// Required reports whether the file at path needs normalization before
// upload. Formats the provider handles well go up as-is.
func (c *Converter) Required(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range convertibleFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// Convert transcodes path to 16kHz mono 128kbps MP3 under the temp dir.
// While ffmpeg runs, onProgress receives an estimate that grows with elapsed
// time and never exceeds 90; it reaches 100 only once the process has exited
// cleanly. On failure the returned path is empty and no progress completes.
func (c *Converter) Convert(ctx context.Context, path string, onProgress func(int)) (string, error) {
	outputPath := filepath.Join(c.tempDir, fmt.Sprintf("normalized_%s.mp3", uuid.New().String()))

	args := []string{
		"-i", path,
		"-ar", "16000", // 16kHz sample rate
		"-ac", "1", // Mono
		"-b:a", "128k", // 128kbps bitrate
		"-y", // Overwrite output
		outputPath,
	}

	done := make(chan struct{})
	var output []byte
	var runErr error
	go func() {
		defer close(done)
		output, runErr = c.runner.Run(ctx, "ffmpeg", args...)
	}()

	start := time.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			if runErr != nil {
				return "", fmt.Errorf("%w: %v\nOutput: %s", ErrConversion, runErr, string(output))
			}
			if onProgress != nil {
				onProgress(100)
			}
			return outputPath, nil
		case <-ticker.C:
			if onProgress != nil {
				elapsed := time.Since(start).Seconds()
				onProgress(min(int(elapsed*10), 90))
			}
		}
	}
}
