package config

import "time"

// Application constants
const (
	AppName   = "Rainflow Cycle Counting"
	EnvPrefix = "RAINFLOW"

	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 60 * time.Second

	DefaultRateLimitRPS   = 20
	DefaultRateLimitBurst = 40

	DefaultLogLevel = "info"
	DefaultLogFile  = "rainflow.log"

	DefaultDataDir    = "data"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"

	// DefaultMaxSamples bounds one analysis. A converging oscillation
	// keeps every loop open to the end, so closure time and level
	// history memory grow with the square of the extrema count.
	DefaultMaxSamples     = 10_000
	DefaultBinWidth       = 1.0
	DefaultMaxBins        = 10_000
	DefaultMaxUploadBytes = 32 << 20

	DefaultWSPingPeriod      = 30 * time.Second
	DefaultWSPongWait        = 60 * time.Second
	DefaultWSReadBufferSize  = 1024
	DefaultWSWriteBufferSize = 4096

	DefaultJobWorkers   = 2
	DefaultJobQueueSize = 32
	DefaultJobRetention = 256
)

// Logging outputs
const (
	OutputConsole = "console"
	OutputFile    = "file"
	OutputBoth    = "both"
)

// Trace exporters
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)
