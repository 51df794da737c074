package config

const (
	defaultDataDir          = "~/data/meg"
	defaultStateDir         = "~/.local/share/bidsprep"
	defaultLogDir           = "~/.local/share/bidsprep/logs"
	defaultOutputDir        = "~/data/bids"
	defaultMaxMarkers       = 2
	defaultShowInstructions = true
	defaultLoaderWorkers    = 4
	defaultDewarPosition    = "supine"
	defaultNtfyTimeout      = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
		},
		Association: Association{
			MaxMarkers:       defaultMaxMarkers,
			ShowInstructions: defaultShowInstructions,
		},
		Loader: Loader{
			Workers: defaultLoaderWorkers,
		},
		Project: Project{
			DewarPosition: defaultDewarPosition,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
