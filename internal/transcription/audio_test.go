package transcription

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner stands in for the ffmpeg binary.
type fakeRunner struct {
	delay  time.Duration
	output []byte
	err    error

	name string
	args []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.output, f.err
}

func TestValidateAudioFormat(t *testing.T) {
	assert.True(t, ValidateAudioFormat("meeting.mp3"))
	assert.True(t, ValidateAudioFormat("MEETING.OGG"))
	assert.True(t, ValidateAudioFormat("a.opus"))
	assert.False(t, ValidateAudioFormat("notes.txt"))
	assert.False(t, ValidateAudioFormat("archive"))
}

func TestConverterRequired(t *testing.T) {
	c := NewConverter(t.TempDir())

	assert.True(t, c.Required("call.ogg"))
	assert.True(t, c.Required("call.m4a"))
	assert.True(t, c.Required("call.OPUS"))
	assert.False(t, c.Required("call.mp3"))
	assert.False(t, c.Required("call.wav"))
	assert.False(t, c.Required("call.flac"))
}

func TestConvertBuildsNormalizationArgs(t *testing.T) {
	runner := &fakeRunner{}
	c := &Converter{tempDir: t.TempDir(), runner: runner}

	out, err := c.Convert(context.Background(), "input.ogg", nil)
	require.NoError(t, err)

	assert.Equal(t, "ffmpeg", runner.name)
	joined := strings.Join(runner.args, " ")
	assert.Contains(t, joined, "-i input.ogg")
	assert.Contains(t, joined, "-ar 16000")
	assert.Contains(t, joined, "-ac 1")
	assert.Contains(t, joined, "-b:a 128k")
	assert.Contains(t, runner.args, "-y")
	assert.Contains(t, out, "normalized_")
	assert.True(t, strings.HasSuffix(out, ".mp3"))
}

func TestConvertProgressCapsUntilSuccess(t *testing.T) {
	runner := &fakeRunner{delay: 350 * time.Millisecond}
	c := &Converter{tempDir: t.TempDir(), runner: runner}

	var progress []int
	out, err := c.Convert(context.Background(), "input.ogg", func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	require.NotEmpty(t, progress)
	for i := 0; i < len(progress)-1; i++ {
		assert.LessOrEqual(t, progress[i], 90, "progress claimed completion before ffmpeg exited")
		if i > 0 {
			assert.GreaterOrEqual(t, progress[i], progress[i-1])
		}
	}
	assert.Equal(t, 100, progress[len(progress)-1])
}

func TestConvertFailureReportsConversionError(t *testing.T) {
	runner := &fakeRunner{output: []byte("Invalid data found"), err: errors.New("exit status 1")}
	c := &Converter{tempDir: t.TempDir(), runner: runner}

	var progress []int
	out, err := c.Convert(context.Background(), "broken.ogg", func(p int) {
		progress = append(progress, p)
	})

	assert.Empty(t, out)
	require.ErrorIs(t, err, ErrConversion)
	assert.Contains(t, err.Error(), "Invalid data found")
	assert.NotContains(t, progress, 100)
}
