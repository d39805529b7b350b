// Package settings holds the process-wide configuration read from the
// environment. It is loaded once at startup and passed explicitly to the
// components that need it; leaf packages never read the environment.
package settings

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// PluginRootEnvVar is set by the host to the installed plugin's directory.
	PluginRootEnvVar = "CLAUDE_PLUGIN_ROOT"
	// LogEnabledEnvVar enables file logging when set to "1".
	LogEnabledEnvVar = "TURBOSHOVEL_LOG"
	// LogLevelEnvVar selects the minimum log level (debug, info, warn, error).
	LogLevelEnvVar = "TURBOSHOVEL_LOG_LEVEL"
	// TelemetryEnvVar opts in to anonymous dispatch telemetry when set to "1".
	TelemetryEnvVar = "TURBOSHOVEL_TELEMETRY"
	// TelemetryOptOutEnvVar disables telemetry regardless of TelemetryEnvVar.
	TelemetryOptOutEnvVar = "TURBOSHOVEL_TELEMETRY_OPTOUT"
	// AccessibleEnvVar switches interactive prompts to plain text mode.
	AccessibleEnvVar = "ACCESSIBLE"
)

// DefaultGateTimeout bounds each command gate.
const DefaultGateTimeout = 30 * time.Second

// LogDirName is the directory under the system temp dir holding log files.
const LogDirName = "turboshovel"

// Settings is the explicit configuration injected into the dispatcher,
// resolver and logger.
type Settings struct {
	// PluginRoot is this plugin's bundle directory. Empty means no plugin
	// tier of configuration and no sibling plugin resolution.
	PluginRoot string

	// LogEnabled turns on JSON line logging to LogDir.
	LogEnabled bool

	// LogLevel is the raw level string; the logging package parses it.
	LogLevel string

	// LogDir is where daily log files are written.
	LogDir string

	// GateTimeout bounds command gate execution.
	GateTimeout time.Duration

	// Telemetry is true only when the user opted in and did not opt out.
	Telemetry bool

	// Accessible selects simpler, screen-reader friendly prompts.
	Accessible bool
}

// FromEnv builds Settings from the process environment.
func FromEnv() Settings {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds Settings using the given lookup function, which lets
// tests supply a fixed environment.
func FromLookup(lookup func(string) (string, bool)) Settings {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	s := Settings{
		PluginRoot:  strings.TrimSpace(get(PluginRootEnvVar)),
		LogEnabled:  get(LogEnabledEnvVar) == "1",
		LogLevel:    get(LogLevelEnvVar),
		LogDir:      filepath.Join(os.TempDir(), LogDirName),
		GateTimeout: DefaultGateTimeout,
		Telemetry:   get(TelemetryEnvVar) == "1" && get(TelemetryOptOutEnvVar) == "",
		Accessible:  get(AccessibleEnvVar) != "",
	}
	if s.PluginRoot != "" {
		s.PluginRoot = absRoot(s.PluginRoot)
	}
	return s
}

// WithPluginRoot returns a copy of s with the plugin root replaced.
// An empty root leaves s unchanged.
func (s Settings) WithPluginRoot(root string) Settings {
	if root == "" {
		return s
	}
	s.PluginRoot = absRoot(root)
	return s
}

// absRoot makes a plugin root absolute so its parent directory, where
// sibling plugins live, is well defined.
func absRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	return abs
}
