package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler periodically prunes old files from the upload and temp
// directories. Disposal of uploaded source files lives here, not in the job
// pipeline: a finished job keeps its source until it ages out.
type Scheduler struct {
	dirs            []string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a scheduler pruning the given directories.
func NewScheduler(dirs []string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		dirs:            dirs,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start runs one immediate sweep and then sweeps on the configured
// interval until Stop is called.
func (s *Scheduler) Start() {
	log.Println("Running initial file cleanup...")
	s.cleanOldFiles()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanOldFiles()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh, dirs: %v)",
		s.intervalMinutes, s.maxAgeHours, s.dirs)
}

// Stop halts the periodic sweeps.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// cleanOldFiles removes files older than maxAgeHours from every watched
// directory.
func (s *Scheduler) cleanOldFiles() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var deletedCount int
	var deletedSize int64

	for _, dir := range s.dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Skip files we can't access
			}
			if info.IsDir() {
				return nil
			}

			age := now.Sub(info.ModTime())
			if age > maxAge {
				size := info.Size()
				if err := os.Remove(path); err != nil {
					log.Printf("Failed to delete old file %s: %v", path, err)
				} else {
					deletedCount++
					deletedSize += size
					log.Printf("Deleted old file: %s (age: %s, size: %dKB)",
						filepath.Base(path), age.Round(time.Hour), size/1024)
				}
			}

			return nil
		})
		if err != nil {
			log.Printf("Error during cleanup of %s: %v", dir, err)
		}
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}

// EnsureDirs creates the watched directories if they don't exist.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
