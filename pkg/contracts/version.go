// Package contracts holds the types shared by the server, the CLI and API
// clients.
package contracts

import (
	"fmt"
	"runtime"
)

// Version of the rainflow tools. Bump together with APIVersion when the
// response shape changes incompatibly.
const Version = "0.3.0"

// APIVersion is the version of the HTTP API and event stream.
const APIVersion = "v1"

// Build metadata, injected with -ldflags "-X".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is served at /api/version.
type VersionInfo struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
	BuildTime  string `json:"build_time"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// GetVersionInfo collects the build metadata of the running binary.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:    Version,
		APIVersion: APIVersion,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetFullVersionString is the one-line form printed by `rainflow -version`.
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("rainflow %s (api %s, commit %s, built %s, %s %s)",
		info.Version, info.APIVersion, info.GitCommit, info.BuildTime, info.GoVersion, info.Platform)
}
