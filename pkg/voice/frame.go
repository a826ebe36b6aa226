// Package voice implements the real-time voice metrics pipeline for Cadence.
//
// The two primary abstractions are:
//
//   - [Source] acquires a live audio input and delivers frequency-magnitude
//     frames until released.
//   - [Sampler] consumes frames from a Source and maintains a running
//     [Metrics] accumulator (volume, silence, pauses, variance, pace).
//
// Sources are provided by transport-specific adapters (e.g. the websocket
// ingest in internal/server); tests use the mock subpackage. The interfaces are
// intentionally narrow so the sampler stays decoupled from how audio arrives.
//
// This package lives under pkg/ because external code (alternative ingest
// adapters) is expected to implement [Source].
package voice

import (
	"context"
	"time"
)

// Frame is a single frequency-magnitude snapshot of the audio input. Frames
// are the atomic unit of the metrics pipeline: transient values that are
// folded into the accumulator and never persisted.
type Frame struct {
	// Bins holds per-band magnitudes in the range 0–255, analogous to a
	// byte-valued FFT magnitude frame. Bin layout is opaque to the sampler;
	// only the mean magnitude matters.
	Bins []byte

	// Timestamp marks when the frame was captured. A zero Timestamp tells the
	// sampler to stamp the frame with its own clock on arrival.
	Timestamp time.Time
}

// Volume returns the mean bin magnitude normalised to [0, 1].
// An empty frame has volume 0.
func (f Frame) Volume() float64 {
	if len(f.Bins) == 0 {
		return 0
	}
	var sum int
	for _, b := range f.Bins {
		sum += int(b)
	}
	return float64(sum) / float64(len(f.Bins)) / 255
}

// Source acquires a live audio input and exposes it as a stream of frames.
//
// A Source is single-use: Start may be called at most once per instance.
// Implementations must be safe for concurrent use of Stop against an active
// Start.
type Source interface {
	// Start acquires the underlying input device or stream and returns the
	// channel on which frames will be delivered. The channel is closed when
	// the input ends or Stop is called. Returns an error if the input cannot
	// be acquired (permission denied, no device, dead connection).
	Start(ctx context.Context) (<-chan Frame, error)

	// Stop releases the input and closes the frame channel. It must be safe
	// to call multiple times and without a prior successful Start.
	Stop()
}
