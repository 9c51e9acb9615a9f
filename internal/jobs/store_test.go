package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcriptorhq/transcriptor/internal/types"
)

func TestStoreGetUnknown(t *testing.T) {
	store := NewStore()

	_, err := store.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Snapshot("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreAddAndGet(t *testing.T) {
	store := NewStore()
	job := NewJob("j1", "a.mp3", types.SourceUpload, "a.mp3")
	store.Add(job)

	got, err := store.Get("j1")
	require.NoError(t, err)
	assert.Same(t, job, got)

	snap, err := store.Snapshot("j1")
	require.NoError(t, err)
	assert.Equal(t, "j1", snap.ID)
}

func TestStoreResultPath(t *testing.T) {
	store := NewStore()
	job := NewJob("j1", "a.mp3", types.SourceUpload, "a.mp3")
	store.Add(job)

	_, err := store.ResultPath("missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.ResultPath("j1")
	require.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, job.BeginProcessing())
	_, err = store.ResultPath("j1")
	require.ErrorIs(t, err, ErrNotReady)

	job.Complete("/out/report.txt", "en", 1, 5)
	path, err := store.ResultPath("j1")
	require.NoError(t, err)
	assert.Equal(t, "/out/report.txt", path)
}

func TestStoreResultPathFailedJobNotReady(t *testing.T) {
	store := NewStore()
	job := NewJob("j1", "a.mp3", types.SourceUpload, "a.mp3")
	store.Add(job)
	require.NoError(t, job.BeginProcessing())
	job.Fail(assert.AnError)

	_, err := store.ResultPath("j1")
	require.ErrorIs(t, err, ErrNotReady)
}
