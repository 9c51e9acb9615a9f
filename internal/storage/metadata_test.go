package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *MetadataDB {
	t.Helper()
	db, err := NewMetadataDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMetadataRoundTrip(t *testing.T) {
	db := newTestDB(t)

	conf := 0.92
	err := db.SaveTranscript("job-1", "standup", "upload", "en", &conf, 2, 120,
		"/outputs/2026/08/29/standup.txt", "https://drive.google.com/file/d/x/view")
	require.NoError(t, err)

	got, err := db.GetTranscript("job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got["job_id"])
	assert.Equal(t, "standup", got["request_name"])
	assert.Equal(t, "upload", got["source_type"])
	assert.Equal(t, "en", got["language"])
	assert.InDelta(t, 0.92, got["confidence"].(float64), 1e-9)
	assert.Equal(t, 2, got["speaker_count"])
	assert.Equal(t, 120, got["word_count"])
	assert.Equal(t, "/outputs/2026/08/29/standup.txt", got["local_path"])
}

func TestMetadataNilConfidence(t *testing.T) {
	db := newTestDB(t)

	err := db.SaveTranscript("job-2", "call", "link", "", nil, 0, 5, "/outputs/call.txt", "")
	require.NoError(t, err)

	got, err := db.GetTranscript("job-2")
	require.NoError(t, err)
	_, present := got["confidence"]
	assert.False(t, present)
	assert.Equal(t, "", got["language"])
}

func TestMetadataGetUnknown(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetTranscript("ghost")
	require.Error(t, err)
}

func TestMetadataList(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.SaveTranscript("job-1", "first", "upload", "en", nil, 1, 10, "/a.txt", ""))
	require.NoError(t, db.SaveTranscript("job-2", "second", "upload", "en", nil, 1, 10, "/b.txt", ""))

	list, err := db.ListTranscripts(50)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = db.ListTranscripts(1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMetadataDuplicateJobIDRejected(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.SaveTranscript("job-1", "a", "upload", "en", nil, 1, 1, "/a.txt", ""))
	err := db.SaveTranscript("job-1", "b", "upload", "en", nil, 1, 1, "/b.txt", "")
	require.Error(t, err)
}
