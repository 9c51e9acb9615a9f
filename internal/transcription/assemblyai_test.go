package transcription

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient("test-key", srv.URL, DefaultSubmitOptions())
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "", DefaultSubmitOptions())
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestUpload(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake audio bytes"), 0644))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("authorization"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("content-type"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "fake audio bytes", string(body))

		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/abc"})
	})

	url, err := client.Upload(context.Background(), audioPath)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/abc", url)
}

func TestUploadNonSuccessStatus(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("x"), 0644))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := client.Upload(context.Background(), audioPath)
	require.ErrorIs(t, err, ErrUpload)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestUploadMissingFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "absent.mp3"))
	require.ErrorIs(t, err, ErrUpload)
}

func TestSubmitSendsConfiguredOptions(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transcript", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("authorization"))
		assert.Equal(t, "application/json", r.Header.Get("content-type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{"id": "transcript-42"})
	})

	id, err := client.Submit(context.Background(), "https://cdn.example/abc")
	require.NoError(t, err)
	assert.Equal(t, "transcript-42", id)

	assert.Equal(t, "https://cdn.example/abc", got["audio_url"])
	assert.Equal(t, "high", got["boost_param"])
	assert.Equal(t, true, got["speaker_labels"])
	assert.Equal(t, true, got["punctuate"])
	assert.Equal(t, true, got["format_text"])
	assert.Equal(t, true, got["language_detection"])
}

func TestSubmitBoostDisabledOmitsBoostParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]interface{}
		json.NewDecoder(r.Body).Decode(&got)
		_, present := got["boost_param"]
		assert.False(t, present)
		json.NewEncoder(w).Encode(map[string]string{"id": "t"})
	}))
	defer srv.Close()

	opts := DefaultSubmitOptions()
	opts.Boost = false
	client, err := NewClient("test-key", srv.URL, opts)
	require.NoError(t, err)

	_, err = client.Submit(context.Background(), "https://cdn.example/abc")
	require.NoError(t, err)
}

func TestSubmitNonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad audio_url", http.StatusBadRequest)
	})

	_, err := client.Submit(context.Background(), "https://cdn.example/abc")
	require.ErrorIs(t, err, ErrSubmit)
}

func TestPollParsesCompletedPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transcript/transcript-42", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("authorization"))

		io.WriteString(w, `{
			"id": "transcript-42",
			"status": "completed",
			"text": "Hello world",
			"language_code": "en",
			"confidence": 0.87,
			"utterances": [
				{"speaker": "A", "start": 100, "end": 900, "text": "Hello world"}
			]
		}`)
	})

	resp, err := client.Poll(context.Background(), "transcript-42")
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)

	result := resp.Result()
	assert.Equal(t, "Hello world", result.Text)
	assert.Equal(t, "en", result.LanguageCode)
	require.NotNil(t, result.Confidence)
	assert.InDelta(t, 0.87, *result.Confidence, 1e-9)
	require.Len(t, result.Utterances, 1)
	assert.Equal(t, int64(100), result.Utterances[0].Start)
}

func TestPollOmittedConfidenceStaysNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id": "t", "status": "completed", "text": "hi"}`)
	})

	resp, err := client.Poll(context.Background(), "t")
	require.NoError(t, err)
	assert.Nil(t, resp.Result().Confidence)
	assert.Empty(t, resp.Result().LanguageCode)
}

func TestPollNonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := client.Poll(context.Background(), "missing")
	require.ErrorIs(t, err, ErrPoll)
}
