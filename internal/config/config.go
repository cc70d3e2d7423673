package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Encoder contains settings for the external ffmpeg invocation.
type Encoder struct {
	FFmpegBinary          string `toml:"ffmpeg_binary"`
	MinFrameRate          int    `toml:"min_frame_rate"`
	MaxFrameRate          int    `toml:"max_frame_rate"`
	DefaultFrameRate      int    `toml:"default_frame_rate"`
	EncodeDeadlineSeconds int    `toml:"encode_deadline_seconds"`
	PaletteScaleWidth     int    `toml:"palette_scale_width"`
}

// Jobs contains limits and reclamation timing for encode jobs.
type Jobs struct {
	MaxFrameCount               int `toml:"max_frame_count"`
	TTLSeconds                  int `toml:"ttl_seconds"`
	SweepIntervalSeconds        int `toml:"sweep_interval_seconds"`
	DownloadCleanupDelaySeconds int `toml:"download_cleanup_delay_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for framefuse.
//
// Configuration sections by subsystem:
//   - Paths: job storage root, log directory, and API bind address
//   - Encoder: ffmpeg binary and encode timing limits
//   - Jobs: frame count limits and storage reclamation policy
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Encoder Encoder `toml:"encoder"`
	Jobs    Jobs    `toml:"jobs"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/framefuse/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Missing files fall back to defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoder()
	c.normalizeJobs()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	expandedWork, err := expandPath(c.Paths.WorkDir)
	if err != nil {
		return fmt.Errorf("expand work_dir: %w", err)
	}
	c.Paths.WorkDir = expandedWork

	expandedLog, err := expandPath(c.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("expand log_dir: %w", err)
	}
	c.Paths.LogDir = expandedLog

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeEncoder() {
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	if c.Encoder.FFmpegBinary == "" {
		c.Encoder.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Encoder.MinFrameRate <= 0 {
		c.Encoder.MinFrameRate = defaultMinFrameRate
	}
	if c.Encoder.MaxFrameRate <= 0 {
		c.Encoder.MaxFrameRate = defaultMaxFrameRate
	}
	if c.Encoder.DefaultFrameRate <= 0 {
		c.Encoder.DefaultFrameRate = defaultFrameRate
	}
	if c.Encoder.EncodeDeadlineSeconds <= 0 {
		c.Encoder.EncodeDeadlineSeconds = defaultEncodeDeadlineSeconds
	}
	if c.Encoder.PaletteScaleWidth <= 0 {
		c.Encoder.PaletteScaleWidth = defaultPaletteScaleWidth
	}
}

func (c *Config) normalizeJobs() {
	if c.Jobs.MaxFrameCount <= 0 {
		c.Jobs.MaxFrameCount = defaultMaxFrameCount
	}
	if c.Jobs.TTLSeconds <= 0 {
		c.Jobs.TTLSeconds = defaultTTLSeconds
	}
	if c.Jobs.SweepIntervalSeconds <= 0 {
		c.Jobs.SweepIntervalSeconds = defaultSweepIntervalSeconds
	}
	if c.Jobs.DownloadCleanupDelaySeconds <= 0 {
		c.Jobs.DownloadCleanupDelaySeconds = defaultDownloadCleanupDelaySeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// EnsureDirectories creates the directories framefuse writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the configured ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if c == nil || strings.TrimSpace(c.Encoder.FFmpegBinary) == "" {
		return defaultFFmpegBinary
	}
	return c.Encoder.FFmpegBinary
}

// ClampFrameRate bounds a requested frame rate to the configured range.
// Out-of-range values are clamped, never rejected.
func (c *Config) ClampFrameRate(fps int) int {
	if fps < c.Encoder.MinFrameRate {
		return c.Encoder.MinFrameRate
	}
	if fps > c.Encoder.MaxFrameRate {
		return c.Encoder.MaxFrameRate
	}
	return fps
}

// EncodeDeadline returns the wall-clock budget for one encode invocation.
func (c *Config) EncodeDeadline() time.Duration {
	return time.Duration(c.Encoder.EncodeDeadlineSeconds) * time.Second
}

// JobTTL returns the maximum age before a job is reclaimed regardless of status.
func (c *Config) JobTTL() time.Duration {
	return time.Duration(c.Jobs.TTLSeconds) * time.Second
}

// SweepInterval returns the period between reaper sweeps.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Jobs.SweepIntervalSeconds) * time.Second
}

// DownloadCleanupDelay returns how long a job lingers after a successful download.
func (c *Config) DownloadCleanupDelay() time.Duration {
	return time.Duration(c.Jobs.DownloadCleanupDelaySeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			trimmed = home
		} else if strings.HasPrefix(trimmed, "~/") {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}

// ExpandPath expands a leading tilde and returns an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
