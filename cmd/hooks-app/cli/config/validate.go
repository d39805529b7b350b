package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/event"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/validation"
)

// Validate checks the structural invariants of a merged configuration and
// returns a *ConfigError naming the first violation found. Maps are walked
// in sorted key order so the reported violation is deterministic.
func Validate(cfg *GatesConfig) error {
	known := knownEventStrings()

	// Hook event names must be known
	for _, hookName := range sortedKeys(cfg.Hooks) {
		if !event.IsKnown(hookName) {
			reason := fmt.Sprintf("Unknown hook event: %s. Must be one of: %s", hookName, strings.Join(known, ", "))
			if s := suggest(hookName, known); s != "" {
				reason += fmt.Sprintf(" (did you mean %s?)", s)
			}
			return &ConfigError{Reason: reason}
		}
	}

	// Gates referenced by hooks must be defined
	for _, hookName := range sortedKeys(cfg.Hooks) {
		for _, gateName := range cfg.Hooks[hookName].Gates {
			if _, ok := cfg.Gates[gateName]; !ok {
				return &ConfigError{Reason: fmt.Sprintf("Hook '%s' references undefined gate '%s'", hookName, gateName)}
			}
		}
	}

	for _, gateName := range sortedKeys(cfg.Gates) {
		spec := cfg.Gates[gateName]

		if err := validation.ValidateGateName(gateName); err != nil {
			return &ConfigError{Reason: "Invalid gate definition", Err: err}
		}

		// Exactly one executable shape
		if _, err := spec.Target(gateName); err != nil {
			return err
		}

		// Actions are terminal or name an existing gate
		for _, action := range []string{spec.OnPass, spec.OnFail} {
			if action == "" || IsTerminalAction(action) {
				continue
			}
			if _, ok := cfg.Gates[action]; !ok {
				return &ConfigError{Reason: fmt.Sprintf("Gate '%s' action '%s' is not CONTINUE/BLOCK/STOP or valid gate name", gateName, action)}
			}
		}
	}

	return nil
}

// suggest returns the closest known event name for a misspelt one, matched
// case-insensitively.
func suggest(name string, known []string) string {
	lowered := make([]string, len(known))
	for i, k := range known {
		lowered[i] = strings.ToLower(k)
	}
	matches := fuzzy.Find(strings.ToLower(name), lowered)
	if len(matches) == 0 {
		return ""
	}
	return known[matches[0].Index]
}

func knownEventStrings() []string {
	names := event.KnownNames()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GateNames returns the configured gate names in sorted order.
func (c *GatesConfig) GateNames() []string {
	return sortedKeys(c.Gates)
}

// HookNames returns the configured hook events in canonical event order,
// followed by any unknown names sorted.
func (c *GatesConfig) HookNames() []string {
	var names []string
	for _, n := range event.KnownNames() {
		if _, ok := c.Hooks[string(n)]; ok {
			names = append(names, string(n))
		}
	}
	for _, k := range sortedKeys(c.Hooks) {
		if !slices.Contains(names, k) {
			names = append(names, k)
		}
	}
	return names
}
