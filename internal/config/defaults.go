package config

const (
	defaultDataDir             = "~/.local/share/brandtruth"
	defaultLogDir              = "~/.local/share/brandtruth/logs"
	defaultAPIBind             = "127.0.0.1:7519"
	defaultOrchestratorBaseURL = "http://127.0.0.1:8787"
	defaultRequestTimeout      = 15
	defaultHealthCheckInterval = 30
	defaultMaxRetries          = 3
	defaultStartedGrace        = 2
	defaultReconnectAttempts   = 3
	defaultReconnectDelayStep  = 1
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Orchestrator: Orchestrator{
			BaseURL:        defaultOrchestratorBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Health: Health{
			CheckInterval: defaultHealthCheckInterval,
		},
		Queue: Queue{
			MaxRetries:   defaultMaxRetries,
			StartedGrace: defaultStartedGrace,
		},
		Stream: Stream{
			ReconnectAttempts:  defaultReconnectAttempts,
			ReconnectDelayStep: defaultReconnectDelayStep,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
