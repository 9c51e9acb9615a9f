package jobs

import (
	"errors"
	"sync"

	"github.com/transcriptorhq/transcriptor/internal/types"
)

// Sentinel errors for job lookup and lifecycle misuse.
var (
	ErrNotFound         = errors.New("job not found")
	ErrAlreadyProcessed = errors.New("job already processed")
	ErrNotReady         = errors.New("job result not ready")
)

// Store is the in-memory job registry. Entries live for the lifetime of the
// process; nothing is persisted across restarts.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Add registers a freshly created job.
func (s *Store) Add(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get looks a job up by id.
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job, nil
}

// Snapshot returns the current state of a job.
func (s *Store) Snapshot(id string) (Snapshot, error) {
	job, err := s.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return job.Snapshot(), nil
}

// ResultPath returns the transcript location for a completed job. Jobs that
// have not finished report ErrNotReady regardless of how close they are.
func (s *Store) ResultPath(id string) (string, error) {
	job, err := s.Get(id)
	if err != nil {
		return "", err
	}
	snap := job.Snapshot()
	if snap.Status != types.StatusCompleted {
		return "", ErrNotReady
	}
	return snap.ResultPath, nil
}
