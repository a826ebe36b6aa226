package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

const defaultPollInterval = 5 * time.Second

// Watcher polls a config file and reports edits through a callback. Polling a
// small YAML file is cheap enough that an fsnotify dependency is not worth it.
// A file that fails to parse or validate leaves the active config in place.
type Watcher struct {
	path     string
	every    time.Duration
	onChange func(old, new *Config)

	mu      sync.Mutex
	active  *Config
	fileSum [sha256.Size]byte

	quit     chan struct{}
	quitOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval overrides the default 5 second polling interval.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.every = d
		}
	}
}

// NewWatcher loads the config at path and starts polling it in the
// background. The initial load must succeed; later failures only log.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		every:    defaultPollInterval,
		onChange: onChange,
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, sum, err := readConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.active = cfg
	w.fileSum = sum

	go w.run()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Stop ends polling. Safe to call more than once.
func (w *Watcher) Stop() {
	w.quitOnce.Do(func() { close(w.quit) })
}

func (w *Watcher) run() {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()
	for {
		select {
		case <-w.quit:
			return
		case <-ticker.C:
			w.reload()
		}
	}
}

// reload re-reads the file and swaps the active config when the content hash
// changed and the new content is valid. The callback runs outside the lock so
// it may call [Watcher.Current].
func (w *Watcher) reload() {
	cfg, sum, err := readConfigFile(w.path)
	if err != nil {
		slog.Warn("config reload skipped", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	if sum == w.fileSum {
		w.mu.Unlock()
		return
	}
	old := w.active
	w.active = cfg
	w.fileSum = sum
	w.mu.Unlock()

	slog.Info("configuration reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// readConfigFile reads, parses, and validates the file at path, returning the
// config together with a content hash for change detection.
func readConfigFile(path string) (*Config, [sha256.Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	return cfg, sha256.Sum256(data), nil
}
