package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
	Jobs      JobsConfig      `yaml:"jobs" envconfig:"JOBS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// AnalysisConfig bounds the work a single analysis may do
type AnalysisConfig struct {
	MaxSamples      int     `yaml:"max_samples" envconfig:"MAX_SAMPLES"`
	DefaultBinWidth float64 `yaml:"default_bin_width" envconfig:"DEFAULT_BIN_WIDTH"`
	MaxBins         int     `yaml:"max_bins" envconfig:"MAX_BINS"`
	MaxUploadBytes  int64   `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// TelemetryConfig controls OpenTelemetry providers
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
}

// WebSocketConfig contains the analysis event stream settings
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// JobsConfig sizes the asynchronous analysis queue
type JobsConfig struct {
	Workers   int `yaml:"workers" envconfig:"WORKERS"`
	QueueSize int `yaml:"queue_size" envconfig:"QUEUE_SIZE"`
	// Retention is how many finished jobs are kept for polling
	Retention int `yaml:"retention" envconfig:"RETENTION"`
}

// SheetsConfig holds the Google Sheets client settings used for
// spreadsheet sources. With neither credentials nor an API key set the
// client falls back to application default credentials.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	APIKey          string `yaml:"api_key" envconfig:"API_KEY"`
	// Endpoint overrides the API base URL, e.g. for a local emulator.
	// An endpoint without credentials is called unauthenticated.
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT"`
}

// Load builds the configuration from defaults, the first config file
// found in the working directory, and the environment.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit YAML file. An empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Keys absent from the file keep their defaults.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Struct tags carry no defaults, so only variables that are set
	// override the file layer.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and normalises enumerations
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive when enabled")
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	switch c.Logging.Output {
	case OutputConsole, OutputFile, OutputBoth:
	default:
		return fmt.Errorf("invalid logging output: %q", c.Logging.Output)
	}

	if c.Analysis.MaxSamples <= 0 {
		return fmt.Errorf("analysis max samples must be positive")
	}
	if w := c.Analysis.DefaultBinWidth; w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return fmt.Errorf("analysis default bin width must be positive")
	}
	if c.Analysis.MaxBins <= 0 {
		return fmt.Errorf("analysis max bins must be positive")
	}
	if c.Analysis.MaxUploadBytes <= 0 {
		return fmt.Errorf("analysis max upload bytes must be positive")
	}

	switch c.Telemetry.TraceExporter {
	case "", TraceExporterNone:
		c.Telemetry.TraceExporter = TraceExporterNone
	case TraceExporterStdout:
	default:
		return fmt.Errorf("unknown trace exporter: %q", c.Telemetry.TraceExporter)
	}

	if c.WebSocket.PongWait <= c.WebSocket.PingPeriod {
		return fmt.Errorf("websocket pong wait must exceed ping period")
	}
	if c.Jobs.Workers <= 0 || c.Jobs.QueueSize <= 0 || c.Jobs.Retention <= 0 {
		return fmt.Errorf("jobs workers, queue size and retention must be positive")
	}
	if c.Sheets.CredentialsFile != "" && c.Sheets.APIKey != "" {
		return fmt.Errorf("sheets credentials file and api key are mutually exclusive")
	}
	return nil
}

// findConfigFile returns the first config file present, or "".
func findConfigFile() string {
	for _, location := range []string{"config.yaml", "configs/config.yaml"} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimitRPS,
				Burst:   DefaultRateLimitBurst,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Output:   OutputConsole,
			FilePath: DefaultLogFile,
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ReportsDir: DefaultReportsDir,
			LogsDir:    DefaultLogsDir,
		},
		Analysis: AnalysisConfig{
			MaxSamples:      DefaultMaxSamples,
			DefaultBinWidth: DefaultBinWidth,
			MaxBins:         DefaultMaxBins,
			MaxUploadBytes:  DefaultMaxUploadBytes,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "rainflow",
			MetricsEnabled: true,
			TraceExporter:  TraceExporterNone,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  DefaultWSReadBufferSize,
			WriteBufferSize: DefaultWSWriteBufferSize,
			PingPeriod:      DefaultWSPingPeriod,
			PongWait:        DefaultWSPongWait,
		},
		Jobs: JobsConfig{
			Workers:   DefaultJobWorkers,
			QueueSize: DefaultJobQueueSize,
			Retention: DefaultJobRetention,
		},
	}
}
