// Package dispatch routes one hook event through context injection and the
// configured gate sequence, producing the decision returned to the host.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/builtin"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/config"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/contextfile"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/event"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/gate"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/logging"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/session"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/settings"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/telemetry"
)

// MaxGatesPerDispatch caps executed gates so misconfigured on_pass/on_fail
// chains terminate.
const MaxGatesPerDispatch = 10

// Result is the decision for one event. All fields empty means no output.
type Result struct {
	Context     string
	BlockReason string
	StopMessage string

	// GatesExecuted counts gates that actually ran.
	GatesExecuted int
}

// ConfigLoader loads the effective configuration for a project.
type ConfigLoader interface {
	Load(ctx context.Context, projectDir string) (*config.GatesConfig, error)
}

// GateExecutor runs one gate.
type GateExecutor interface {
	Execute(ctx context.Context, name string, spec config.GateSpec, ev *event.Event, chain []string) (bool, *gate.Result, error)
}

// ContextInjector returns context discovered for an event.
type ContextInjector interface {
	Inject(ctx context.Context, ev *event.Event) (string, error)
}

// Dispatcher handles hook events.
type Dispatcher struct {
	Loader    ConfigLoader
	Executor  GateExecutor
	Injector  ContextInjector
	Telemetry telemetry.Client

	// OpenStore returns the session store for a project. Nil uses
	// session.NewStore.
	OpenStore func(projectDir string) *session.Store
}

// New wires a dispatcher from settings with the built-in gates registered.
func New(s settings.Settings, tel telemetry.Client) *Dispatcher {
	return &Dispatcher{
		Loader:    config.NewLoader(s.PluginRoot),
		Executor:  gate.NewExecutor(s, builtin.NewRegistry(s)),
		Injector:  contextfile.NewInjector(s.PluginRoot),
		Telemetry: tel,
	}
}

// Dispatch processes ev. Configuration and resolution errors are returned;
// gate failures are part of the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *event.Event) (*Result, error) {
	ctx = logging.WithComponent(ctx, "dispatch")
	ctx = logging.WithEvent(ctx, string(ev.HookEventName))
	start := time.Now()

	logging.Debug(ctx, "dispatch started",
		slog.String("tool", ev.ToolName),
		slog.String("agent", ev.Agent()),
		slog.String("file", ev.EditedFile()),
		slog.String("cwd", ev.Cwd),
	)

	res, err := d.dispatch(ctx, ev)

	outcome := telemetry.OutcomeContinue
	executed := 0
	switch {
	case err != nil:
		outcome = telemetry.OutcomeError
	case res.BlockReason != "":
		outcome = telemetry.OutcomeBlock
	case res.StopMessage != "":
		outcome = telemetry.OutcomeStop
	}
	if res != nil {
		executed = res.GatesExecuted
	}
	if d.Telemetry != nil {
		d.Telemetry.TrackDispatch(string(ev.HookEventName), executed, outcome)
	}

	logging.LogDuration(ctx, slog.LevelDebug, "dispatch completed", start,
		slog.String("outcome", outcome),
		slog.Int("gates_executed", executed),
	)
	return res, err
}

func (d *Dispatcher) dispatch(ctx context.Context, ev *event.Event) (*Result, error) {
	d.updateSession(ctx, ev)

	res := &Result{}

	// Context injection always runs first
	if d.Injector != nil {
		injected, err := d.Injector.Inject(ctx, ev)
		if err != nil {
			logging.Warn(ctx, "context injection failed", slog.String("error", err.Error()))
		}
		res.Context = injected
	}

	cfg, err := d.Loader.Load(ctx, ev.Cwd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		logging.Debug(ctx, "no gates configuration")
		return res, nil
	}

	hook, ok := cfg.Hooks[string(ev.HookEventName)]
	if !ok {
		logging.Debug(ctx, "hook event not configured")
		return res, nil
	}

	if !ShouldProcess(ev, hook) {
		logging.Debug(ctx, "hook filtered out by enabled list",
			slog.String("tool", ev.ToolName),
			slog.String("agent", ev.Agent()),
		)
		return res, nil
	}

	var acc strings.Builder
	acc.WriteString(res.Context)

	queue := slices.Clone(hook.Gates)
	for i := 0; i < len(queue); i++ {
		name := queue[i]

		if res.GatesExecuted >= MaxGatesPerDispatch {
			logging.Warn(ctx, "gate chain limit reached", slog.Int("limit", MaxGatesPerDispatch))
			return &Result{
				BlockReason:   fmt.Sprintf("Exceeded max gate chain depth (%d). Check for circular references.", MaxGatesPerDispatch),
				GatesExecuted: res.GatesExecuted,
			}, nil
		}

		spec, ok := cfg.Gates[name]
		if !ok {
			fmt.Fprintf(&acc, "\nWarning: Gate '%s' not defined, skipping", name)
			continue
		}

		if ev.HookEventName == event.UserPromptSubmit && !MatchesKeywords(spec, ev.Message()) {
			logging.Debug(ctx, "gate skipped, no keyword match", slog.String("gate", name))
			continue
		}

		res.GatesExecuted++

		gateCtx := logging.WithGate(ctx, name)
		gateStart := time.Now()
		passed, gateRes, err := d.Executor.Execute(gateCtx, name, spec, ev, nil)
		if err != nil {
			return nil, err
		}

		action := spec.FailAction()
		if passed {
			action = spec.PassAction()
		}
		logging.LogDuration(gateCtx, slog.LevelInfo, "gate executed", gateStart,
			slog.Bool("passed", passed),
			slog.String("action", action),
		)

		out := ResolveAction(action, gateRes)
		if out.Context != "" {
			acc.WriteString("\n" + out.Context)
		}

		if !out.Continue {
			logging.Warn(gateCtx, "dispatch halted by gate",
				slog.String("action", action),
				slog.Bool("blocked", out.BlockReason != ""),
				slog.Bool("stopped", out.StopMessage != ""),
			)
			res.Context = acc.String()
			res.BlockReason = out.BlockReason
			res.StopMessage = out.StopMessage
			return res, nil
		}

		if out.ChainedGate != "" {
			queue = append(queue, out.ChainedGate)
		}
	}

	res.Context = acc.String()
	return res, nil
}

// ShouldProcess applies the hook's enabled lists. PostToolUse is filtered
// by tool name and SubagentStop by agent name; empty lists allow all.
func ShouldProcess(ev *event.Event, hook config.HookSpec) bool {
	switch ev.HookEventName {
	case event.PostToolUse:
		if len(hook.EnabledTools) > 0 {
			return slices.Contains(hook.EnabledTools, ev.ToolName)
		}
	case event.SubagentStop:
		if len(hook.EnabledAgents) > 0 {
			return slices.Contains(hook.EnabledAgents, ev.Agent())
		}
	}
	return true
}

// MatchesKeywords reports whether a UserPromptSubmit gate should run for
// message. Gates without keywords always run; otherwise any keyword found
// as a case-insensitive substring matches, so "test" matches "latest".
func MatchesKeywords(spec config.GateSpec, message string) bool {
	if len(spec.Keywords) == 0 {
		return true
	}
	if message == "" {
		return false
	}

	lower := strings.ToLower(message)
	for _, kw := range spec.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// updateSession records command, skill and edit activity. Failures are
// logged and never affect the dispatch.
func (d *Dispatcher) updateSession(ctx context.Context, ev *event.Event) {
	store := d.store(ev.Cwd)
	ctx = logging.WithComponent(ctx, "session")

	var err error
	switch ev.HookEventName {
	case event.SlashCommandStart:
		if ev.Command != "" {
			err = store.Set(ctx, session.KeyActiveCommand, ev.Command)
		}
	case event.SlashCommandEnd:
		err = store.Set(ctx, session.KeyActiveCommand, nil)
	case event.SkillStart:
		if ev.Skill != "" {
			err = store.Set(ctx, session.KeyActiveSkill, ev.Skill)
		}
	case event.SkillEnd:
		err = store.Set(ctx, session.KeyActiveSkill, nil)
	case event.PostToolUse:
		file := ev.EditedFile()
		if file == "" {
			return
		}
		err = store.Append(ctx, session.KeyEditedFiles, file)
		if ext := session.FileExtension(file); err == nil && ext != "" {
			err = store.Append(ctx, session.KeyFileExtensions, ext)
		}
	default:
		return
	}

	if err != nil {
		logging.Error(ctx, "session update failed",
			slog.String("error", err.Error()),
			slog.String("cwd", ev.Cwd),
		)
	}
}

func (d *Dispatcher) store(projectDir string) *session.Store {
	if d.OpenStore != nil {
		return d.OpenStore(projectDir)
	}
	return session.NewStore(projectDir)
}
