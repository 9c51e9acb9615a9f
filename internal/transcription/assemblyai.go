package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/transcriptorhq/transcriptor/internal/types"
)

const defaultBaseURL = "https://api.assemblyai.com/v2"

// Sentinel errors for the remote provider stages. ErrPoll covers transport
// and decoding failures while checking status; a provider-reported "error"
// status is surfaced by the poller as ErrRemote instead.
var (
	ErrMissingAPIKey = errors.New("assemblyai api key not configured")
	ErrUpload        = errors.New("audio upload failed")
	ErrSubmit        = errors.New("transcription request failed")
	ErrPoll          = errors.New("transcription status check failed")
)

// Remote transcript status values.
const (
	remoteQueued     = "queued"
	remoteProcessing = "processing"
	remoteCompleted  = "completed"
	remoteError      = "error"
)

// SubmitOptions mirror the provider's transcription request knobs.
type SubmitOptions struct {
	Boost             bool `yaml:"boost"`
	SpeakerLabels     bool `yaml:"speaker_labels"`
	Punctuate         bool `yaml:"punctuate"`
	FormatText        bool `yaml:"format_text"`
	LanguageDetection bool `yaml:"language_detection"`
}

// DefaultSubmitOptions enables every enrichment the reports rely on.
func DefaultSubmitOptions() SubmitOptions {
	return SubmitOptions{
		Boost:             true,
		SpeakerLabels:     true,
		Punctuate:         true,
		FormatText:        true,
		LanguageDetection: true,
	}
}

// Client talks to the AssemblyAI v2 REST API.
type Client struct {
	apiKey     string
	baseURL    string
	opts       SubmitOptions
	httpClient *http.Client
}

// NewClient builds a provider client. The API key is mandatory; without it
// no request can be authenticated, so construction fails rather than every
// later call.
func NewClient(apiKey, baseURL string, opts SubmitOptions) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		opts:       opts,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Upload streams the audio file to the provider and returns the remote URL
// a transcription request should reference.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", f)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("content-type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrUpload, resp.StatusCode, body)
	}

	var payload struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if payload.UploadURL == "" {
		return "", fmt.Errorf("%w: response missing upload_url", ErrUpload)
	}
	return payload.UploadURL, nil
}

// transcriptRequest matches the provider's transcription request body.
type transcriptRequest struct {
	AudioURL          string `json:"audio_url"`
	BoostParam        string `json:"boost_param,omitempty"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	Punctuate         bool   `json:"punctuate"`
	FormatText        bool   `json:"format_text"`
	LanguageDetection bool   `json:"language_detection"`
}

// Submit queues a transcription for an uploaded audio URL and returns the
// remote transcript id used for polling.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	reqBody := transcriptRequest{
		AudioURL:          audioURL,
		SpeakerLabels:     c.opts.SpeakerLabels,
		Punctuate:         c.opts.Punctuate,
		FormatText:        c.opts.FormatText,
		LanguageDetection: c.opts.LanguageDetection,
	}
	if c.opts.Boost {
		reqBody.BoostParam = "high"
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrSubmit, resp.StatusCode, respBody)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("%w: response missing transcript id", ErrSubmit)
	}
	return payload.ID, nil
}

// PollResponse is one snapshot of a remote transcript's state.
type PollResponse struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Text         string            `json:"text"`
	LanguageCode string            `json:"language_code"`
	Confidence   *float64          `json:"confidence"`
	Error        string            `json:"error"`
	Utterances   []types.Utterance `json:"utterances"`
}

// Result converts a completed poll payload into the service's result type.
func (p *PollResponse) Result() *types.TranscriptionResult {
	return &types.TranscriptionResult{
		Text:         p.Text,
		LanguageCode: p.LanguageCode,
		Confidence:   p.Confidence,
		Utterances:   p.Utterances,
	}
}

// Poll fetches the current state of a submitted transcript.
func (c *Client) Poll(ctx context.Context, id string) (*PollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPoll, err)
	}
	req.Header.Set("authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPoll, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrPoll, resp.StatusCode, body)
	}

	var payload PollResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPoll, err)
	}
	return &payload, nil
}
