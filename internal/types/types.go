package types

// Job status constants
const (
	StatusUploaded   = "UPLOADED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceLink   = "link"
)

// TranscriptionResult represents the parsed output of a finished remote
// transcription. LanguageCode is empty and Confidence nil when the provider
// omits them.
type TranscriptionResult struct {
	Text         string      `json:"text"`
	LanguageCode string      `json:"language_code,omitempty"`
	Confidence   *float64    `json:"confidence,omitempty"`
	Utterances   []Utterance `json:"utterances,omitempty"`
}

// Utterance is one speaker-attributed stretch of audio. Start and End are
// offsets from the beginning of the recording in milliseconds.
type Utterance struct {
	Speaker string `json:"speaker"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Text    string `json:"text"`
}

// SpeakerCount returns the number of distinct speaker labels across the
// utterances. Empty labels count as speaker "A", matching how reports
// render them.
func (r *TranscriptionResult) SpeakerCount() int {
	seen := make(map[string]struct{})
	for _, u := range r.Utterances {
		label := u.Speaker
		if label == "" {
			label = "A"
		}
		seen[label] = struct{}{}
	}
	return len(seen)
}
