package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/transcriptorhq/transcriptor/internal/metrics"
	"github.com/transcriptorhq/transcriptor/internal/types"
)

// Terminal polling outcomes. ErrRemote carries the provider-reported
// failure; ErrTimeout means the transcript never reached a terminal state
// within the attempt budget. The two are distinct so callers can tell a
// rejected job from one that merely outlived our patience.
var (
	ErrRemote  = errors.New("remote transcription failed")
	ErrTimeout = errors.New("transcription timed out")
)

// StatusClient is the slice of the provider client the poller needs.
type StatusClient interface {
	Poll(ctx context.Context, id string) (*PollResponse, error)
}

// Poller drives a submitted transcript to a terminal state by periodic
// status checks.
type Poller struct {
	client      StatusClient
	interval    time.Duration
	maxAttempts int
}

// NewPoller creates a poller checking every interval, up to maxAttempts
// times.
func NewPoller(client StatusClient, interval time.Duration, maxAttempts int) *Poller {
	return &Poller{client: client, interval: interval, maxAttempts: maxAttempts}
}

// Wait polls the transcript until it completes, the provider reports an
// error, the attempt budget runs out, or ctx is canceled. Every attempt
// pushes a progress estimate through onUpdate before the poller sleeps, so
// the last observed state is always current. Estimates stay at or below 90;
// completion reports 95 and hands the final percentage to the caller. The
// returned result is non-nil only on success.
func (p *Poller) Wait(ctx context.Context, id string, onUpdate func(progress int, message string)) (*types.TranscriptionResult, error) {
	start := time.Now()
	attempts := 0
	defer func() { metrics.ObservePollAttempts(attempts) }()

	for attempts < p.maxAttempts {
		resp, err := p.client.Poll(ctx, id)
		if err != nil {
			return nil, err
		}
		attempts++

		progress, message := estimateProgress(resp.Status, time.Since(start).Seconds())
		if onUpdate != nil {
			onUpdate(progress, message)
		}

		switch resp.Status {
		case remoteCompleted:
			if onUpdate != nil {
				onUpdate(95, "Transcription completed!")
			}
			return resp.Result(), nil
		case remoteError:
			return nil, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}

	return nil, ErrTimeout
}

// estimateProgress maps a coarse remote status and the elapsed polling time
// onto the 55-90 band: queued crawls through 55-65, processing through
// 65-90, anything unrecognized parks at 90 while the provider finishes up.
// The exact pacing is a smoothing heuristic; the cap at 90 is not.
func estimateProgress(status string, elapsed float64) (int, string) {
	const base = 55

	var progress int
	var message string
	switch status {
	case remoteQueued:
		progress = base + min(int(elapsed*2), 10)
		message = "Waiting in queue..."
	case remoteProcessing:
		progress = base + 10 + min(int(elapsed*3), 25)
		message = "Transcription in progress..."
	default:
		progress = base + 35
		message = "Finalizing..."
	}
	return min(progress, 90), message
}
