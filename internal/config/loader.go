package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [LoadFromReader] to fields left unset.
const (
	DefaultListenAddr = ":8080"
	DefaultSampleRate = 48000
	DefaultBins       = 32
	DefaultCoachModel = "gpt-4o-mini"
)

// opusSampleRates lists the PCM sample rates the Opus codec supports.
var opusSampleRates = []int{8000, 12000, 16000, 24000, 48000}

// ValidCoachProviders lists known coach provider names.
// Used by [Validate] to warn about unrecognised names.
var ValidCoachProviders = []string{"openai"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields with the package defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.Bins == 0 {
		cfg.Audio.Bins = DefaultBins
	}
	if cfg.Coach.Name != "" && cfg.Coach.Model == "" {
		cfg.Coach.Model = DefaultCoachModel
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Audio
	if !slices.Contains(opusSampleRates, cfg.Audio.SampleRate) {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is invalid; valid values: 8000, 12000, 16000, 24000, 48000", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Bins < 8 || cfg.Audio.Bins > 255 {
		errs = append(errs, fmt.Errorf("audio.bins %d is out of range [8, 255]", cfg.Audio.Bins))
	}

	// Coach
	if cfg.Coach.Name != "" {
		if !slices.Contains(ValidCoachProviders, cfg.Coach.Name) {
			slog.Warn("unknown coach provider name, may be a typo or third-party provider",
				"name", cfg.Coach.Name,
				"known", ValidCoachProviders,
			)
		}
		if cfg.Coach.APIKey == "" {
			errs = append(errs, fmt.Errorf("coach.api_key is required when coach.name is set"))
		}
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; progression state will not survive a restart")
	}

	return errors.Join(errs...)
}
