package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/transcriptorhq/transcriptor/internal/metrics"
	"github.com/transcriptorhq/transcriptor/internal/storage"
	"github.com/transcriptorhq/transcriptor/internal/transcription"
	"github.com/transcriptorhq/transcriptor/internal/types"
)

// ErrShuttingDown rejects new starts once a drain has begun.
var ErrShuttingDown = errors.New("runner is shutting down")

// Converter normalizes audio files the provider handles poorly.
type Converter interface {
	Required(path string) bool
	Convert(ctx context.Context, path string, onProgress func(int)) (string, error)
}

// Provider uploads audio and queues transcriptions on the remote service.
type Provider interface {
	Upload(ctx context.Context, path string) (string, error)
	Submit(ctx context.Context, audioURL string) (string, error)
}

// Watcher drives a submitted transcription to a terminal outcome.
type Watcher interface {
	Wait(ctx context.Context, id string, onUpdate func(progress int, message string)) (*types.TranscriptionResult, error)
}

// Runner owns the transcription pipeline. Each started job runs on its own
// goroutine; that goroutine is the only writer of the job's status fields
// until the job is terminal. The runner tracks in-flight goroutines so
// shutdown can drain them instead of abandoning half-finished work.
type Runner struct {
	store     *Store
	converter Converter
	provider  Provider
	watcher   Watcher
	local     *storage.LocalStorage
	drive     *storage.DriveClient
	db        *storage.MetadataDB

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	draining bool
}

// NewRunner wires the pipeline. drive and db may be nil; archival and the
// transcript catalog are then skipped.
func NewRunner(
	store *Store,
	converter Converter,
	provider Provider,
	watcher Watcher,
	local *storage.LocalStorage,
	drive *storage.DriveClient,
	db *storage.MetadataDB,
) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:     store,
		converter: converter,
		provider:  provider,
		watcher:   watcher,
		local:     local,
		drive:     drive,
		db:        db,
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Start moves a job from UPLOADED to PROCESSING and spawns its run.
// Unknown ids fail with ErrNotFound; jobs that already left UPLOADED fail
// with ErrAlreadyProcessed and are not touched.
func (r *Runner) Start(id string) error {
	job, err := r.store.Get(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return ErrShuttingDown
	}
	if err := job.BeginProcessing(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(job)
	return nil
}

// Shutdown stops accepting new jobs and waits for in-flight ones. If ctx
// expires first, the shared base context is canceled so pollers and
// subprocesses abort, and the remaining goroutines are still joined before
// returning.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.draining = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}

// run executes the pipeline for one job. All failures are absorbed here and
// recorded on the job; nothing propagates to the caller of Start.
func (r *Runner) run(job *Job) {
	defer r.wg.Done()

	started := time.Now()
	metrics.JobStarted(job.SourceType)
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Job %s: PANIC: %v\n%s", job.ID, rec, string(debug.Stack()))
			job.Fail(fmt.Errorf("internal error: %v", rec))
		}
		metrics.JobFinished(job.Status(), time.Since(started))
	}()

	if err := r.process(job); err != nil {
		log.Printf("Job %s failed: %v", job.ID, err)
		job.Fail(err)
		return
	}
	log.Printf("Job %s completed in %s", job.ID, time.Since(started).Round(time.Millisecond))
}

// process runs the pipeline steps in order, short-circuiting on the first
// error. The uploaded source file is left in place; only a normalized temp
// file produced here is removed, and that removal never fails the job.
func (r *Runner) process(job *Job) error {
	audioPath := job.SourcePath

	if r.converter.Required(audioPath) {
		job.SetProgress(10, "Converting audio format...")
		converted, err := r.converter.Convert(r.baseCtx, audioPath, func(p int) {
			// Conversion progress occupies the 10-40 band.
			job.SetProgress(10+p*30/100, "Converting audio format...")
		})
		if err != nil {
			return err
		}
		defer r.removeTempFile(job.ID, converted)
		audioPath = converted
	}

	job.SetProgress(40, "Uploading audio to transcription service...")
	audioURL, err := r.provider.Upload(r.baseCtx, audioPath)
	if err != nil {
		return err
	}
	job.SetProgress(50, "Upload complete")

	transcriptID, err := r.provider.Submit(r.baseCtx, audioURL)
	if err != nil {
		return err
	}
	job.SetProgress(55, "Transcription queued")
	log.Printf("Job %s: transcript %s submitted", job.ID, transcriptID)

	result, err := r.watcher.Wait(r.baseCtx, transcriptID, job.SetProgress)
	if err != nil {
		return err
	}

	report := transcription.FormatReport(result)
	words := len(strings.Fields(result.Text))

	job.SetProgress(98, "Saving transcript...")
	localPath, err := r.local.SaveReport(job.ID, job.SourceName, report, result)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	driveURL := r.archive(job, report, result)

	if r.db != nil {
		err := r.db.SaveTranscript(job.ID, job.SourceName, job.SourceType,
			result.LanguageCode, result.Confidence, result.SpeakerCount(), words,
			localPath, driveURL)
		if err != nil {
			log.Printf("Job %s: catalog insert failed: %v", job.ID, err)
		}
	}

	job.Complete(localPath, result.LanguageCode, result.SpeakerCount(), words)
	return nil
}

// archive pushes the report to Google Drive with retries. Archival is best
// effort: the local transcript is authoritative, so failures are logged and
// an empty URL returned.
func (r *Runner) archive(job *Job, report string, result *types.TranscriptionResult) string {
	if r.drive == nil {
		return ""
	}
	for attempt := 1; attempt <= 3; attempt++ {
		url, err := r.drive.Upload(job.ID, job.SourceName, report, result)
		if err == nil {
			return url
		}
		log.Printf("Job %s: Drive upload attempt %d/3 failed: %v", job.ID, attempt, err)
		if attempt < 3 {
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}
	}
	log.Printf("Job %s: WARNING - Drive upload failed after 3 attempts, keeping local copy only", job.ID)
	return ""
}

// removeTempFile deletes a normalization artifact. The transcript already
// exists by the time this runs on the success path, so a failed delete is
// logged rather than reported.
func (r *Runner) removeTempFile(jobID, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Job %s: failed to remove temp file %s: %v", jobID, path, err)
	}
}
