package config

const (
	defaultConfigPath     = "~/.config/envscan/config.toml"
	defaultDataDir        = "~/.local/share/envscan"
	defaultLogDir         = "~/.local/share/envscan/logs"
	defaultArchivePath    = "~/.local/share/envscan/signals.db"
	defaultIndexDir       = "~/.local/share/envscan/evolution"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultEnforce        = EnforceStrict
	defaultMinFreeMiB     = 64
	defaultTopicDefinite  = 0.60
	defaultTopicUncertain = 0.30
	defaultTitleDefinite  = 0.90
	defaultTitleUncertain = 0.80
	defaultEntityDefinite = 0.85
	defaultEntityUncert   = 0.70
)

// Enforcement modes for the dedup gate.
const (
	EnforceStrict  = "strict"
	EnforceLenient = "lenient"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			ArchivePath: defaultArchivePath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Dedup: Dedup{
			Enforce:         defaultEnforce,
			TopicDefinite:   defaultTopicDefinite,
			TopicUncertain:  defaultTopicUncertain,
			TitleDefinite:   defaultTitleDefinite,
			TitleUncertain:  defaultTitleUncertain,
			EntityDefinite:  defaultEntityDefinite,
			EntityUncertain: defaultEntityUncert,
		},
		Evolution: Evolution{
			IndexDir:  defaultIndexDir,
			Workflows: []string{"wf1-general", "wf2-arxiv", "wf3-naver"},
		},
		Preflight: Preflight{
			MinFreeMiB: defaultMinFreeMiB,
		},
	}
}
