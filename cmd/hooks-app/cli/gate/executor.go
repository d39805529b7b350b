package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/config"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/event"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/logging"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/settings"
)

// ErrNotExecutable marks a gate borrowed from another plugin that has
// neither a command nor a further plugin reference.
var ErrNotExecutable = errors.New("gate has no command")

// Executor runs a single gate.
type Executor struct {
	Registry *Registry
	Resolver *Resolver

	// Timeout bounds each command gate. Zero uses settings.DefaultGateTimeout.
	Timeout time.Duration

	// Runner overrides process creation. Nil uses exec.CommandContext.
	Runner CommandRunner
}

// NewExecutor wires an executor from settings.
func NewExecutor(s settings.Settings, registry *Registry) *Executor {
	return &Executor{
		Registry: registry,
		Resolver: NewResolver(s.PluginRoot),
		Timeout:  s.GateTimeout,
	}
}

// Execute runs the gate called name. chain holds the plugin:gate ids
// already visited; callers outside this package pass nil.
//
// Command gates pass on exit 0 and report their output as context.
// Built-ins pass unless they block or stop. A gate referring to another
// plugin behaves exactly like the gate it resolves to, running its command
// in that plugin's directory.
func (e *Executor) Execute(ctx context.Context, name string, spec config.GateSpec, ev *event.Event, chain []string) (bool, *Result, error) {
	return e.execute(ctx, name, spec, ev, ev.Cwd, chain)
}

func (e *Executor) execute(ctx context.Context, name string, spec config.GateSpec, ev *event.Event, dir string, chain []string) (bool, *Result, error) {
	target, err := spec.Target(name)
	if err != nil {
		return false, nil, err
	}

	switch t := target.(type) {
	case config.CommandTarget:
		return e.runCommand(ctx, t, dir)

	case config.PluginTarget:
		return e.runPlugin(ctx, t, ev, chain)

	case config.BuiltinTarget:
		if len(chain) > 0 {
			// Borrowed gates must be runnable without our registry
			return false, nil, &ResolutionError{
				Plugin: pluginOf(chain),
				Gate:   name,
				Chain:  slices.Clone(chain),
				Err:    ErrNotExecutable,
			}
		}
		return e.runBuiltin(ctx, name, ev)

	default:
		return false, nil, fmt.Errorf("gate '%s': unsupported target %T", name, target)
	}
}

func (e *Executor) runCommand(ctx context.Context, t config.CommandTarget, dir string) (bool, *Result, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = settings.DefaultGateTimeout
	}

	start := time.Now()
	res, err := RunShell(ctx, e.Runner, t.Command, dir, timeout)
	if err != nil {
		return false, nil, err
	}
	logging.LogDuration(ctx, slog.LevelDebug, "command gate finished", start,
		slog.Int("exit_code", res.ExitCode),
		slog.String("dir", dir),
	)
	return res.ExitCode == 0, Context(res.Output), nil
}

func (e *Executor) runPlugin(ctx context.Context, t config.PluginTarget, ev *event.Event, chain []string) (bool, *Result, error) {
	resolver := e.Resolver
	if resolver == nil {
		resolver = &Resolver{}
	}

	res, err := resolver.Resolve(t, chain)
	if err != nil {
		return false, nil, err
	}
	logging.Debug(ctx, "resolved plugin gate",
		slog.String("ref", t.ID()),
		slog.String("plugin_root", res.PluginRoot),
	)

	next := append(slices.Clone(chain), t.ID())
	return e.execute(ctx, t.Gate, res.Spec, ev, res.PluginRoot, next)
}

func (e *Executor) runBuiltin(ctx context.Context, name string, ev *event.Event) (bool, *Result, error) {
	registry := e.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	b, err := registry.Lookup(name)
	if err != nil {
		return false, nil, err
	}

	res, err := b.Evaluate(ctx, ev)
	if err != nil {
		return false, nil, fmt.Errorf("built-in gate %s failed: %w", name, err)
	}
	if res == nil {
		res = &Result{}
	}
	return res.Passed(), res, nil
}

// pluginOf returns the plugin of the last id in chain.
func pluginOf(chain []string) string {
	plugin, _, _ := strings.Cut(chain[len(chain)-1], ":")
	return plugin
}
