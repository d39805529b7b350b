// Package config loads, merges and validates gates.json configuration.
package config

import (
	"fmt"
)

// Terminal gate actions.
const (
	ActionContinue = "CONTINUE"
	ActionBlock    = "BLOCK"
	ActionStop     = "STOP"
)

// IsTerminalAction reports whether a is CONTINUE, BLOCK or STOP.
func IsTerminalAction(a string) bool {
	switch a {
	case ActionContinue, ActionBlock, ActionStop:
		return true
	default:
		return false
	}
}

// GatesConfig is the parsed form of a gates.json document.
type GatesConfig struct {
	Hooks map[string]HookSpec `json:"hooks" yaml:"hooks"`
	Gates map[string]GateSpec `json:"gates" yaml:"gates"`
}

// HookSpec configures one hook event.
type HookSpec struct {
	// EnabledTools restricts PostToolUse to these tool names. Empty means all.
	EnabledTools []string `json:"enabled_tools,omitempty" yaml:"enabled_tools,omitempty"`

	// EnabledAgents restricts SubagentStop to these agents. Empty means all.
	EnabledAgents []string `json:"enabled_agents,omitempty" yaml:"enabled_agents,omitempty"`

	// Gates run in order for this event.
	Gates []string `json:"gates,omitempty" yaml:"gates,omitempty"`
}

// GateSpec configures one gate. The executable shape is one of a shell
// command, a reference to another plugin's gate, or neither (a built-in
// gate looked up by name); use Target to obtain it.
type GateSpec struct {
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	Plugin  string `json:"plugin,omitempty" yaml:"plugin,omitempty"`
	Gate    string `json:"gate,omitempty" yaml:"gate,omitempty"`

	// Keywords gate UserPromptSubmit only: the gate runs when the prompt
	// contains at least one keyword (case-insensitive substring).
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	OnPass string `json:"on_pass,omitempty" yaml:"on_pass,omitempty"`
	OnFail string `json:"on_fail,omitempty" yaml:"on_fail,omitempty"`
}

// PassAction returns on_pass, defaulting to CONTINUE.
func (g GateSpec) PassAction() string {
	if g.OnPass == "" {
		return ActionContinue
	}
	return g.OnPass
}

// FailAction returns on_fail, defaulting to BLOCK.
func (g GateSpec) FailAction() string {
	if g.OnFail == "" {
		return ActionBlock
	}
	return g.OnFail
}

// Target is the executable form of a gate: CommandTarget, PluginTarget or
// BuiltinTarget.
type Target interface {
	isTarget()
}

// CommandTarget runs a shell command.
type CommandTarget struct {
	Command string
}

// PluginTarget delegates to a gate defined by a sibling plugin.
type PluginTarget struct {
	Plugin string
	Gate   string
}

// ID returns the "plugin:gate" identifier used for cycle detection.
func (p PluginTarget) ID() string {
	return p.Plugin + ":" + p.Gate
}

// BuiltinTarget is resolved from the built-in registry by gate name.
type BuiltinTarget struct{}

func (CommandTarget) isTarget() {}
func (PluginTarget) isTarget()  {}
func (BuiltinTarget) isTarget() {}

// Target classifies the gate. name is only used in error messages.
func (g GateSpec) Target(name string) (Target, error) {
	hasPlugin := g.Plugin != ""
	hasGate := g.Gate != ""

	switch {
	case g.Command != "" && (hasPlugin || hasGate):
		return nil, &ConfigError{Reason: fmt.Sprintf("Gate '%s' cannot have both 'command' and 'plugin/gate'", name)}
	case hasPlugin && !hasGate:
		return nil, &ConfigError{Reason: fmt.Sprintf("Gate '%s' has 'plugin' but missing 'gate' field", name)}
	case hasGate && !hasPlugin:
		return nil, &ConfigError{Reason: fmt.Sprintf("Gate '%s' has 'gate' but missing 'plugin' field", name)}
	case g.Command != "":
		return CommandTarget{Command: g.Command}, nil
	case hasPlugin:
		return PluginTarget{Plugin: g.Plugin, Gate: g.Gate}, nil
	default:
		return BuiltinTarget{}, nil
	}
}

// ConfigError reports malformed or invalid configuration. It is always
// fatal to a dispatch.
type ConfigError struct {
	// Path is the offending file, when known.
	Path string
	// Reason names the violated invariant.
	Reason string
	// Err is the underlying parse error, if any.
	Err error
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
