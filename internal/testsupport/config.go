package testsupport

import (
	"path/filepath"
	"testing"

	"framefuse/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "jobs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithEncodeDeadline overrides the encode deadline in seconds.
func WithEncodeDeadline(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Encoder.EncodeDeadlineSeconds = seconds
	}
}

// WithMaxFrameCount overrides the registration frame limit.
func WithMaxFrameCount(count int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Jobs.MaxFrameCount = count
	}
}

// WithTTLSeconds overrides the job time-to-live.
func WithTTLSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Jobs.TTLSeconds = seconds
	}
}
