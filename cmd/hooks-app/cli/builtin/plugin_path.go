package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/event"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/gate"
)

// PluginPath tells the agent where the plugin is installed so it can
// resolve @${CLAUDE_PLUGIN_ROOT}/... references in skills and commands.
type PluginPath struct {
	// Root is the plugin directory. Empty derives it from the executable.
	Root string
}

// executable is replaceable in tests.
var executable = os.Executable

// Evaluate always passes with the plugin path as context.
func (p *PluginPath) Evaluate(_ context.Context, _ *event.Event) (*gate.Result, error) {
	root := p.Root
	if root == "" {
		derived, err := rootFromExecutable()
		if err != nil {
			return nil, err
		}
		root = derived
	}

	return gate.Context(fmt.Sprintf("## Plugin Path Context\n\n"+
		"For this session:\n"+
		"```\n"+
		"CLAUDE_PLUGIN_ROOT=%s\n"+
		"```\n\n"+
		"When you see file references like `@${CLAUDE_PLUGIN_ROOT}skills/...`, resolve them using the path above.",
		root)), nil
}

// rootFromExecutable assumes the binary is installed as
// <plugin>/hooks/hooks-app/<binary>.
func rootFromExecutable() (string, error) {
	exe, err := executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate plugin root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(filepath.Dir(exe))), nil
}
