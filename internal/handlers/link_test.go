package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcriptorhq/transcriptor/internal/types"
)

func postLink(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/link", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLinkDownloadsAndStartsJob(t *testing.T) {
	app, store := newTestApp(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake audio bytes"))
	}))
	defer srv.Close()

	resp, err := app.Test(postLink(t, fmt.Sprintf(`{"url":"%s/talk.mp3","name":"quarterly call"}`, srv.URL)), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	jobID, _ := body["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "quarterly call", body["filename"])

	job, err := store.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, types.SourceLink, job.SourceType)

	content, err := os.ReadFile(job.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "fake audio bytes", string(content))
	assert.True(t, strings.HasSuffix(job.SourcePath, ".mp3"))

	// Link jobs start immediately, no separate /transcribe call.
	require.Eventually(t, func() bool {
		snap, err := store.Snapshot(jobID)
		return err == nil && snap.Status == types.StatusCompleted
	}, 5*time.Second, 5*time.Millisecond)
}

func TestLinkInaccessibleFile(t *testing.T) {
	app, _ := newTestApp(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "private", http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := app.Test(postLink(t, fmt.Sprintf(`{"url":"%s/gone.mp3"}`, srv.URL)), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "ERR_FILE_NOT_ACCESSIBLE", decodeBody(t, resp)["code"])
}

func TestLinkRejectsMissingURL(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(postLink(t, `{"name":"no url"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "ERR_NO_URL", decodeBody(t, resp)["code"])
}

func TestLinkRejectsNonHTTPScheme(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(postLink(t, `{"url":"ftp://example.com/a.mp3"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "ERR_INVALID_URL", decodeBody(t, resp)["code"])
}

func TestResolveDownloadURL(t *testing.T) {
	url, err := resolveDownloadURL("https://drive.google.com/file/d/abc123DEF/view?usp=sharing")
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=abc123DEF", url)

	url, err = resolveDownloadURL("https://drive.google.com/open?id=xyz789")
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=xyz789", url)

	url, err = resolveDownloadURL("https://example.com/audio.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/audio.mp3", url)

	_, err = resolveDownloadURL("ftp://example.com/audio.mp3")
	require.Error(t, err)
}

func TestExtensionFromURL(t *testing.T) {
	assert.Equal(t, ".ogg", extensionFromURL("https://example.com/files/talk.ogg?x=1"))
	assert.Equal(t, ".mp3", extensionFromURL("https://example.com/stream"))
}
