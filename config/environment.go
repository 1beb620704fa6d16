package config

import "strings"

// Environment carries the raw runtime signals used to classify where the
// process runs.
type Environment struct {
	// RunningInDocker is the value of RUNNING_IN_DOCKER.
	RunningInDocker string

	// GitHubActions is the value of GITHUB_ACTIONS, also set by act.
	GitHubActions string
}

// IsContainerized reports whether the process runs in a container or on CI.
// The container flag accepts "true" or "1" in any case; the CI flag must be
// exactly "true".
func (e Environment) IsContainerized() bool {
	switch strings.ToLower(e.RunningInDocker) {
	case "true", "1":
		return true
	}
	return e.GitHubActions == "true"
}

// Name returns a label for log lines.
func (e Environment) Name() string {
	if e.IsContainerized() {
		return "docker"
	}
	return "local"
}
