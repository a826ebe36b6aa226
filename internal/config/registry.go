package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spinhq/cadence/internal/coach"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions. It is safe
// for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	coach map[string]func(ProviderEntry) (coach.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		coach: make(map[string]func(ProviderEntry) (coach.Provider, error)),
	}
}

// RegisterCoach registers a coach provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterCoach(name string, factory func(ProviderEntry) (coach.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coach[name] = factory
}

// CreateCoach instantiates a coach provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateCoach(entry ProviderEntry) (coach.Provider, error) {
	r.mu.RLock()
	factory, ok := r.coach[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: coach/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// DefaultRegistry returns a [Registry] with all built-in providers registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterCoach("openai", func(entry ProviderEntry) (coach.Provider, error) {
		var opts []coach.OpenAIOption
		if entry.BaseURL != "" {
			opts = append(opts, coach.WithBaseURL(entry.BaseURL))
		}
		return coach.NewOpenAI(entry.APIKey, entry.Model, opts...)
	})
	return r
}
