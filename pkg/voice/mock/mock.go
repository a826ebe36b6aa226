// Package mock provides an in-memory mock implementation of the [voice.Source]
// interface for use in unit tests.
//
// The mock records every method call so that tests can assert on call counts,
// and exposes exported fields the test can set to control return values.
//
// Typical usage:
//
//	src := &mock.Source{}
//	sampler := voice.NewSampler(src)
//	sampler.Start(ctx)
//	src.Emit(voice.Frame{Bins: []byte{128}, Timestamp: t0})
//	metrics := sampler.Stop()
package mock

import (
	"context"
	"sync"

	"github.com/spinhq/cadence/pkg/voice"
)

// Source is a mock implementation of [voice.Source].
// Set the exported fields before use; inspect the CallCount fields after.
type Source struct {
	mu sync.Mutex

	// StartError is returned by Start. When non-nil, no frame channel is
	// created and Emit panics.
	StartError error

	// Buffer is the capacity of the frame channel created by Start.
	// Defaults to 64 when zero.
	Buffer int

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	ch     chan voice.Frame
	closed bool
}

// Start implements [voice.Source]. Returns StartError if set, otherwise a
// frame channel fed by [Source.Emit].
func (s *Source) Start(_ context.Context) (<-chan voice.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	if s.StartError != nil {
		return nil, s.StartError
	}
	buf := s.Buffer
	if buf == 0 {
		buf = 64
	}
	s.ch = make(chan voice.Frame, buf)
	s.closed = false
	return s.ch, nil
}

// Emit delivers a frame to the sampler. It must only be called between Start
// and Stop.
func (s *Source) Emit(f voice.Frame) {
	s.mu.Lock()
	ch := s.ch
	closed := s.closed
	s.mu.Unlock()
	if ch == nil || closed {
		panic("mock: Emit called without an active Start")
	}
	ch <- f
}

// Stop implements [voice.Source]. Closes the frame channel. Safe to call
// multiple times and without a prior Start.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStop++
	if s.ch != nil && !s.closed {
		close(s.ch)
		s.closed = true
	}
}
