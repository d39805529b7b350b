// Package builtin provides the gates compiled into the hooks binary. A gate
// configured with neither a command nor a plugin reference is looked up
// here by its own name.
package builtin

import (
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/gate"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/settings"
)

// Built-in gate names.
const (
	NamePluginPath = "plugin-path"
	NameSecretScan = "secret-scan"
	NameGitStatus  = "git-status"
)

// Register adds every built-in gate to r.
func Register(r *gate.Registry, s settings.Settings) {
	r.Register(NamePluginPath, &PluginPath{Root: s.PluginRoot})
	r.Register(NameSecretScan, &SecretScan{MaxFileSize: defaultMaxScanSize})
	r.Register(NameGitStatus, &GitStatus{})
}

// NewRegistry returns a registry holding every built-in gate.
func NewRegistry(s settings.Settings) *gate.Registry {
	r := gate.NewRegistry()
	Register(r, s)
	return r
}
