// Package validation provides input validation functions for the hooks app.
// This package has no dependencies to avoid import cycles.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ValidatePluginName rejects plugin names that could escape the plugins
// directory when joined onto a path. Plugins are trusted once installed;
// this only guards against a misconfigured reference.
func ValidatePluginName(name string) error {
	if name == "" {
		return errors.New("plugin name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("invalid plugin name %q: contains path separators", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("invalid plugin name %q: contains parent directory reference", name)
	}
	return nil
}

// ValidateGateName checks that a gate name is usable as a map key and as a
// chaining target. Whitespace-only names are almost always typos.
func ValidateGateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("gate name cannot be empty")
	}
	return nil
}
