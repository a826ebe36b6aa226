package voice

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	// silenceThreshold is the normalised volume below which a frame counts as
	// silence.
	silenceThreshold = 0.02

	// pauseThreshold is the minimum silence gap that counts as a deliberate
	// pause rather than a breath.
	pauseThreshold = 500 * time.Millisecond

	// windowSize bounds the sliding volume window used for variance.
	windowSize = 100

	// minWindowSamples is the number of window samples required before the
	// variance is considered meaningful.
	minWindowSamples = 10

	// paceWarmup is how long a session must run before the pace estimate
	// starts updating.
	paceWarmup = 5 * time.Second

	// idlePace is the pace reported before the warmup elapses.
	idlePace = 120
)

// Metrics is the accumulated view of a session's voice activity. All volume
// fields are normalised to [0, 1]. A Metrics value returned by [Sampler.Stop]
// or [Sampler.Snapshot] is an immutable copy.
type Metrics struct {
	// Volume is the most recent frame's normalised volume.
	Volume float64 `json:"volume"`

	// SmoothVolume is an exponential moving average of Volume
	// (0.9 previous / 0.1 current).
	SmoothVolume float64 `json:"smooth_volume"`

	// IsSilent reports whether the most recent frame was below the silence
	// threshold.
	IsSilent bool `json:"is_silent"`

	// TotalSilenceDuration is the summed duration, in seconds, of all silence
	// gaps that ended so far.
	TotalSilenceDuration float64 `json:"total_silence_duration"`

	// PauseCount is the number of silence gaps longer than half a second.
	// Monotonically non-decreasing within a session.
	PauseCount int `json:"pause_count"`

	// AverageSpeechVolume is the mean volume over non-silent frames only.
	AverageSpeechVolume float64 `json:"average_speech_volume"`

	// EstimatedPace is a coarse speaking-rate proxy derived from the pause
	// count. It is not a words-per-minute measurement.
	EstimatedPace int `json:"estimated_pace"`

	// VolumeVariance is the population standard deviation of the volume over
	// the sliding window.
	VolumeVariance float64 `json:"volume_variance"`

	// PeakVolume is the loudest non-silent frame seen so far.
	PeakVolume float64 `json:"peak_volume"`
}

// Option configures a [Sampler].
type Option func(*Sampler)

// WithClock overrides the sampler's time source. Used by tests to drive the
// pause and pace timing deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

// WithUpdateFunc registers fn to be called with a metrics snapshot after every
// processed frame. fn runs on the sampling goroutine and must not block.
func WithUpdateFunc(fn func(Metrics)) Option {
	return func(s *Sampler) { s.onUpdate = fn }
}

// Sampler folds frames from a [Source] into a [Metrics] accumulator.
//
// All mutation happens on a single sampling goroutine started by [Sampler.Start],
// so consecutive samples never overlap. Consumers read point-in-time copies via
// [Sampler.Snapshot] or the final copy returned by [Sampler.Stop].
type Sampler struct {
	source   Source
	now      func() time.Time
	onUpdate func(Metrics)

	mu      sync.Mutex
	running bool
	done    chan struct{}

	metrics          Metrics
	window           []float64
	wasSilent        bool
	lastSilenceStart time.Time
	startTime        time.Time
	speechVolumeSum  float64
	speechSamples    int
}

// NewSampler creates a Sampler reading from source.
func NewSampler(source Source, opts ...Option) *Sampler {
	s := &Sampler{
		source: source,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start acquires the source and begins sampling. It reports false when the
// input cannot be acquired; no error propagates beyond a log entry, and the
// sampler stays idle so that a later [Sampler.Stop] is a harmless no-op.
//
// Starting an already-running sampler reports false.
func (s *Sampler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	frames, err := s.source.Start(ctx)
	if err != nil {
		slog.Warn("voice: input acquisition failed", "err", err)
		return false
	}

	start := s.now()
	s.metrics = Metrics{IsSilent: true, EstimatedPace: idlePace}
	s.window = s.window[:0]
	s.wasSilent = true
	s.lastSilenceStart = start
	s.startTime = start
	s.speechVolumeSum = 0
	s.speechSamples = 0

	s.running = true
	s.done = make(chan struct{})
	go s.run(ctx, frames, s.done)
	return true
}

// run is the sampling loop. It exits when the frame channel closes (the source
// was stopped or the input ended) or the context is cancelled.
func (s *Sampler) run(ctx context.Context, frames <-chan Frame, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			s.source.Stop()
			// Drain so the source's sender never blocks.
			for range frames {
			}
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			snapshot := s.step(frame)
			if s.onUpdate != nil {
				s.onUpdate(snapshot)
			}
		}
	}
}

// step folds one frame into the accumulator and returns the resulting snapshot.
func (s *Sampler) step(frame Frame) Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := frame.Timestamp
	if now.IsZero() {
		now = s.now()
	}

	vol := frame.Volume()
	s.metrics.Volume = vol
	s.metrics.SmoothVolume = s.metrics.SmoothVolume*0.9 + vol*0.1

	silent := vol < silenceThreshold
	switch {
	case silent && !s.wasSilent:
		s.lastSilenceStart = now
	case !silent && s.wasSilent:
		gap := now.Sub(s.lastSilenceStart)
		if gap > pauseThreshold {
			s.metrics.PauseCount++
		}
		s.metrics.TotalSilenceDuration += gap.Seconds()
	}
	s.wasSilent = silent
	s.metrics.IsSilent = silent

	if !silent {
		s.speechVolumeSum += vol
		s.speechSamples++
		s.metrics.PeakVolume = math.Max(s.metrics.PeakVolume, vol)
		s.metrics.AverageSpeechVolume = s.speechVolumeSum / float64(s.speechSamples)
	}

	s.window = append(s.window, vol)
	if len(s.window) > windowSize {
		s.window = s.window[1:]
	}
	if len(s.window) >= minWindowSamples {
		s.metrics.VolumeVariance = stddev(s.window)
	}

	if now.Sub(s.startTime) > paceWarmup {
		s.metrics.EstimatedPace = 100 + s.metrics.PauseCount*5
	}

	return s.metrics
}

// Snapshot returns a copy of the current metrics. Safe to call at any time,
// including before Start and after Stop.
func (s *Sampler) Snapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Stop halts sampling, releases the source, and returns the final metrics
// snapshot. Safe to call even if Start never succeeded, and more than once;
// subsequent calls return the same final snapshot.
func (s *Sampler) Stop() Metrics {
	s.mu.Lock()
	if !s.running {
		m := s.metrics
		s.mu.Unlock()
		return m
	}
	s.running = false
	done := s.done
	s.mu.Unlock()

	s.source.Stop()
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// stddev computes the population standard deviation of samples.
func stddev(samples []float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(len(samples))

	var sq float64
	for _, v := range samples {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(samples)))
}
