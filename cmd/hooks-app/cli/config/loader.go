package config

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"maps"
	"os"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/jsonutil"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/logging"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/paths"
)

//go:embed defaults/gates.json
var bundledDefaults []byte

// Loader resolves the effective configuration for a project.
type Loader struct {
	// PluginRoot locates the plugin tier. Empty disables it.
	PluginRoot string
}

// NewLoader creates a loader for the plugin installed at pluginRoot.
func NewLoader(pluginRoot string) *Loader {
	return &Loader{PluginRoot: pluginRoot}
}

// Tiers holds the individual files that contributed to a configuration.
type Tiers struct {
	PluginPath  string
	Plugin      *GatesConfig
	ProjectPath string
	Project     *GatesConfig
}

// Load returns the merged and validated configuration for projectDir.
//
// Priority:
//  1. Project: .claude/gates.json (highest)
//  2. Project: gates.json (only if 1 is absent)
//  3. Plugin: <plugin root>/hooks/gates.json (defaults)
//
// The project tier is merged over the plugin tier key by key. When neither
// tier has a file the bundled default configuration is returned.
func (l *Loader) Load(ctx context.Context, projectDir string) (*GatesConfig, error) {
	tiers, err := l.LoadTiers(ctx, projectDir)
	if err != nil {
		return nil, err
	}

	var merged *GatesConfig
	switch {
	case tiers.Plugin != nil && tiers.Project != nil:
		merged = Merge(tiers.Plugin, tiers.Project)
		logging.Debug(ctx, "merged project config with plugin config")
	case tiers.Plugin != nil:
		merged = tiers.Plugin
	case tiers.Project != nil:
		merged = tiers.Project
	default:
		logging.Debug(ctx, "no gates.json found, using bundled defaults")
		merged, err = Defaults()
		if err != nil {
			return nil, err
		}
	}

	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// LoadTiers reads the plugin and project files without merging or
// validating them.
func (l *Loader) LoadTiers(ctx context.Context, projectDir string) (*Tiers, error) {
	tiers := &Tiers{}

	if l.PluginRoot != "" {
		p := paths.PluginGatesFile(l.PluginRoot)
		cfg, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			logging.Debug(ctx, "loaded plugin gates.json", slog.String("path", p))
			tiers.PluginPath, tiers.Plugin = p, cfg
		}
	}

	for _, p := range paths.ProjectGatesFiles(projectDir) {
		cfg, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			logging.Debug(ctx, "loaded project gates.json", slog.String("path", p))
			tiers.ProjectPath, tiers.Project = p, cfg
			break // Only the first project file found is used
		}
	}

	return tiers, nil
}

// ReadFile loads a single gates.json document. It returns (nil, nil) when
// the file does not exist.
func ReadFile(path string) (*GatesConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from fixed layout
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil //nolint:nilnil // nil,nil indicates no file (expected case)
		}
		return nil, &ConfigError{Path: path, Reason: "failed to read gates.json", Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: "failed to parse gates.json", Err: err}
	}
	return cfg, nil
}

// Parse decodes a gates.json document. Comments and trailing commas are
// accepted.
func Parse(data []byte) (*GatesConfig, error) {
	var cfg GatesConfig
	if err := jsonutil.UnmarshalJSONC(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Hooks == nil {
		cfg.Hooks = map[string]HookSpec{}
	}
	if cfg.Gates == nil {
		cfg.Gates = map[string]GateSpec{}
	}
	return &cfg, nil
}

// Defaults returns the configuration bundled into the binary.
func Defaults() (*GatesConfig, error) {
	cfg, err := Parse(bundledDefaults)
	if err != nil {
		return nil, &ConfigError{Path: "bundled defaults", Reason: "failed to parse gates.json", Err: err}
	}
	return cfg, nil
}

// Merge overlays override on base. Hooks and gates are merged key by key
// with override winning on collision; neither input is modified.
func Merge(base, override *GatesConfig) *GatesConfig {
	merged := &GatesConfig{
		Hooks: make(map[string]HookSpec, len(base.Hooks)+len(override.Hooks)),
		Gates: make(map[string]GateSpec, len(base.Gates)+len(override.Gates)),
	}
	maps.Copy(merged.Hooks, base.Hooks)
	maps.Copy(merged.Hooks, override.Hooks)
	maps.Copy(merged.Gates, base.Gates)
	maps.Copy(merged.Gates, override.Gates)
	return merged
}
