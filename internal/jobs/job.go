package jobs

import (
	"sync"
	"time"

	"github.com/transcriptorhq/transcriptor/internal/types"
)

// Job tracks one transcription request from upload to a terminal state.
// Identity fields are set once at creation and safe to read directly; the
// mutable state below the mutex is written by the runner goroutine and read
// through Snapshot.
type Job struct {
	ID         string
	SourceName string
	SourceType string
	SourcePath string
	CreatedAt  time.Time

	mu          sync.Mutex
	status      string
	progress    int
	message     string
	resultPath  string
	language    string
	speakers    int
	words       int
	errText     string
	completedAt time.Time
}

// NewJob creates a job in the UPLOADED state.
func NewJob(id, sourceName, sourceType, sourcePath string) *Job {
	return &Job{
		ID:         id,
		SourceName: sourceName,
		SourceType: sourceType,
		SourcePath: sourcePath,
		CreatedAt:  time.Now(),
		status:     types.StatusUploaded,
		message:    "File uploaded, waiting for transcription to start",
	}
}

// Snapshot is a point-in-time copy of a job's externally visible state.
type Snapshot struct {
	ID          string     `json:"job_id"`
	SourceName  string     `json:"filename"`
	SourceType  string     `json:"source_type"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	ResultPath  string     `json:"result_file,omitempty"`
	Language    string     `json:"language_code,omitempty"`
	Speakers    int        `json:"speaker_count,omitempty"`
	Words       int        `json:"word_count,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot copies the current state for handlers and the status API.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Snapshot{
		ID:         j.ID,
		SourceName: j.SourceName,
		SourceType: j.SourceType,
		Status:     j.status,
		Progress:   j.progress,
		Message:    j.message,
		ResultPath: j.resultPath,
		Language:   j.language,
		Speakers:   j.speakers,
		Words:      j.words,
		Error:      j.errText,
		CreatedAt:  j.CreatedAt,
	}
	if !j.completedAt.IsZero() {
		t := j.completedAt
		s.CompletedAt = &t
	}
	return s
}

// Status returns the current lifecycle state.
func (j *Job) Status() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// BeginProcessing transitions UPLOADED -> PROCESSING. Any other starting
// state means the job was already handed off once; the call fails with
// ErrAlreadyProcessed and leaves the job untouched.
func (j *Job) BeginProcessing() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != types.StatusUploaded {
		return ErrAlreadyProcessed
	}
	j.status = types.StatusProcessing
	j.message = "Processing started"
	return nil
}

// SetProgress updates the progress estimate and the user-facing message.
// Progress is clamped to 0-100 and never moves backwards; the message is
// replaced wholesale. Terminal jobs ignore further updates.
func (j *Job) SetProgress(progress int, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == types.StatusCompleted || j.status == types.StatusFailed {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > j.progress {
		j.progress = progress
	}
	if message != "" {
		j.message = message
	}
}

// Complete marks a processing job COMPLETED and records its artifacts.
func (j *Job) Complete(resultPath, language string, speakers, words int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != types.StatusProcessing {
		return
	}
	j.status = types.StatusCompleted
	j.progress = 100
	j.message = "Transcription completed successfully"
	j.resultPath = resultPath
	j.language = language
	j.speakers = speakers
	j.words = words
	j.completedAt = time.Now()
}

// Fail marks a non-terminal job FAILED, keeping whatever progress it had
// reached.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == types.StatusCompleted || j.status == types.StatusFailed {
		return
	}
	j.status = types.StatusFailed
	j.errText = err.Error()
	j.message = "Transcription failed: " + err.Error()
	j.completedAt = time.Now()
}
