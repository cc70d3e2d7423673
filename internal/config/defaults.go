package config

const (
	defaultWorkDir = "~/.local/share/framefuse/jobs"
	defaultLogDir  = "~/.local/share/framefuse/logs"
	defaultAPIBind = "127.0.0.1:7512"

	defaultFFmpegBinary          = "ffmpeg"
	defaultMinFrameRate          = 1
	defaultMaxFrameRate          = 60
	defaultFrameRate             = 24
	defaultEncodeDeadlineSeconds = 300
	defaultPaletteScaleWidth     = 640

	defaultMaxFrameCount               = 1000
	defaultTTLSeconds                  = 7200
	defaultSweepIntervalSeconds        = 3600
	defaultDownloadCleanupDelaySeconds = 60

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Encoder: Encoder{
			FFmpegBinary:          defaultFFmpegBinary,
			MinFrameRate:          defaultMinFrameRate,
			MaxFrameRate:          defaultMaxFrameRate,
			DefaultFrameRate:      defaultFrameRate,
			EncodeDeadlineSeconds: defaultEncodeDeadlineSeconds,
			PaletteScaleWidth:     defaultPaletteScaleWidth,
		},
		Jobs: Jobs{
			MaxFrameCount:               defaultMaxFrameCount,
			TTLSeconds:                  defaultTTLSeconds,
			SweepIntervalSeconds:        defaultSweepIntervalSeconds,
			DownloadCleanupDelaySeconds: defaultDownloadCleanupDelaySeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
