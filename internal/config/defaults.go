package config

// Caption source identifiers accepted by downloads.subtitle_source.
const (
	SourceUser = "user"
	SourceAuto = "auto"
)

const (
	defaultConfigPath       = "~/.config/subarchive/config.toml"
	defaultMediaDir         = "~/youtube"
	defaultDataDir          = "~/.local/share/subarchive"
	defaultLogDir           = "~/.local/share/subarchive/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultSubtitleSource   = SourceUser
	defaultSleepInterval    = 3
	defaultRequestTimeout   = 30
	defaultUserAgent        = "subarchive/dev"
	defaultIndexName        = "ta_subtitle"
	defaultIndexTimeout     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Downloads: Downloads{
			SubtitleSource: defaultSubtitleSource,
			SleepInterval:  defaultSleepInterval,
			RequestTimeout: defaultRequestTimeout,
			UserAgent:      defaultUserAgent,
		},
		Index: Index{
			Name:    defaultIndexName,
			Timeout: defaultIndexTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
