package config

const (
	defaultLogDir            = "~/.local/share/custody/logs"
	defaultTranscoderBinary  = "ffmpeg"
	defaultTranscoderTimeout = 0
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Transcoder: Transcoder{
			Binary:         defaultTranscoderBinary,
			TimeoutSeconds: defaultTranscoderTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
