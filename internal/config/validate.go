package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the normalized configuration for contradictions.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		problems = append(problems, "paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must be set")
	}
	if c.Encoder.MinFrameRate > c.Encoder.MaxFrameRate {
		problems = append(problems, fmt.Sprintf(
			"encoder.min_frame_rate %d exceeds encoder.max_frame_rate %d",
			c.Encoder.MinFrameRate, c.Encoder.MaxFrameRate))
	}
	if c.Encoder.DefaultFrameRate < c.Encoder.MinFrameRate || c.Encoder.DefaultFrameRate > c.Encoder.MaxFrameRate {
		problems = append(problems, fmt.Sprintf(
			"encoder.default_frame_rate %d outside [%d, %d]",
			c.Encoder.DefaultFrameRate, c.Encoder.MinFrameRate, c.Encoder.MaxFrameRate))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
