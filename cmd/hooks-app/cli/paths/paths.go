// Package paths centralises the on-disk layout used by the hooks app.
package paths

import (
	"path/filepath"
	"time"
)

// Directory and file names relative to a project directory.
const (
	ClaudeDir        = ".claude"
	GatesFileName    = "gates.json"
	SessionDir       = ".claude/session"
	SessionStateFile = ".claude/session/state.json"
	ProjectContext   = ".claude/context"
)

// Directory names relative to a plugin root.
const (
	PluginHooksDir   = "hooks"
	PluginContextDir = "context"
)

// ProjectGatesFiles returns the project-level gates.json candidates in
// precedence order. Only the first that exists is used.
func ProjectGatesFiles(projectDir string) []string {
	return []string{
		filepath.Join(projectDir, ClaudeDir, GatesFileName),
		filepath.Join(projectDir, GatesFileName),
	}
}

// PluginGatesFile returns the gates.json shipped with a plugin.
func PluginGatesFile(pluginRoot string) string {
	return filepath.Join(pluginRoot, PluginHooksDir, GatesFileName)
}

// SessionStatePath returns the session state file for a project.
func SessionStatePath(projectDir string) string {
	return filepath.Join(projectDir, SessionStateFile)
}

// SiblingPluginRoot returns the root of plugin name installed next to the
// plugin at pluginRoot. Plugins live as siblings under one parent directory.
// The name must already be validated.
func SiblingPluginRoot(pluginRoot, name string) string {
	root, err := filepath.Abs(pluginRoot)
	if err != nil {
		root = filepath.Clean(pluginRoot)
	}
	return filepath.Join(filepath.Dir(root), name)
}

// LogFileName returns the daily log file name for t, e.g. hooks-2025-11-25.log.
func LogFileName(t time.Time) string {
	return "hooks-" + t.UTC().Format("2006-01-02") + ".log"
}
