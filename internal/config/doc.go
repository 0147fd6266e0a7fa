// Package config loads the rainflow service and CLI configuration.
//
// # Configuration Sources
//
// Values are resolved in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. A YAML file: the path passed to LoadFile, or the first of
//     config.yaml and configs/config.yaml found by Load
//  3. Default()
//
// # Environment Variables
//
// Variables use the RAINFLOW prefix and the section name:
//
//	RAINFLOW_SERVER_PORT=8080
//	RAINFLOW_LOGGING_LEVEL=debug
//	RAINFLOW_ANALYSIS_MAX_SAMPLES=2000000
//	RAINFLOW_SECURITY_RATE_LIMIT_RPS=20
//	RAINFLOW_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Paths
//
// Relative directories in the paths section are resolved against the
// directory of the running executable, not the working directory. Use
// Paths for every file the application writes.
package config
