package transcription

import (
	"fmt"
	"sort"
	"strings"

	"github.com/transcriptorhq/transcriptor/internal/types"
)

// FormatReport renders a finished transcription as the plain-text report
// users download. Output depends only on the result: utterances are ordered
// by start time (stably, so equal starts keep their incoming order) and
// optional header fields are omitted rather than zero-filled. Utterances
// whose end precedes their start are rendered as-is.
func FormatReport(result *types.TranscriptionResult) string {
	var b strings.Builder

	b.WriteString("=== TRANSCRIPTION REPORT ===\n\n")

	if result.LanguageCode != "" {
		fmt.Fprintf(&b, "Detected language: %s\n", result.LanguageCode)
	}
	if result.Confidence != nil {
		fmt.Fprintf(&b, "Confidence: %.2f\n", *result.Confidence)
	}
	fmt.Fprintf(&b, "Speakers: %d\n", result.SpeakerCount())

	b.WriteString("\n=== SPEAKER SEGMENTS ===\n\n")

	utterances := make([]types.Utterance, len(result.Utterances))
	copy(utterances, result.Utterances)
	sort.SliceStable(utterances, func(i, j int) bool {
		return utterances[i].Start < utterances[j].Start
	})

	for _, u := range utterances {
		speaker := u.Speaker
		if speaker == "" {
			speaker = "A"
		}
		fmt.Fprintf(&b, "[%s - %s] Speaker %s: %s\n\n",
			formatTimestamp(u.Start), formatTimestamp(u.End), speaker, u.Text)
	}

	return b.String()
}

// formatTimestamp renders a millisecond offset as HH:MM:SS, truncating
// sub-second precision.
func formatTimestamp(ms int64) string {
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
