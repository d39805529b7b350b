// Package contextfile discovers markdown files that are injected as
// additional context for a hook event.
//
// Files are named {name}-{stage}.md and looked up first under the
// project's .claude/context directory, then under the plugin's context
// directory. For example, .claude/context/code-review-start.md is injected
// when /code-review starts and .claude/context/prompt-submit.md on every
// prompt.
package contextfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/event"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/logging"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/paths"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/session"
)

// Stages.
const (
	StageStart   = "start"
	StageEnd     = "end"
	StagePre     = "pre"
	StagePost    = "post"
	StageSubmit  = "submit"
	StageStop    = "stop"
	StageReceive = "receive"
)

// Injector finds and reads the context file for an event.
type Injector struct {
	// PluginRoot holds the fallback context directory. Empty disables it.
	PluginRoot string

	// OpenStore returns the session store for a project. Nil uses
	// session.NewStore.
	OpenStore func(projectDir string) *session.Store
}

// NewInjector creates an injector for the plugin installed at pluginRoot.
func NewInjector(pluginRoot string) *Injector {
	return &Injector{PluginRoot: pluginRoot}
}

// Inject returns the content of the first matching context file, or "" when
// none exists.
func (in *Injector) Inject(ctx context.Context, ev *event.Event) (string, error) {
	var file string

	if ev.HookEventName == event.SubagentStop {
		agent := ev.Agent()
		if agent == "" {
			return "", nil
		}
		state := in.store(ev.Cwd).State(ctx)
		file = in.discoverAgent(ctx, ev.Cwd, agent, activeWork(state), StageEnd)
	} else {
		name, stage, ok := NameAndStage(ev)
		if !ok {
			logging.Debug(ctx, "no context name for event")
			return "", nil
		}
		file = in.Discover(ctx, ev.Cwd, name, stage)
	}

	if file == "" {
		return "", nil
	}

	data, err := os.ReadFile(file) //nolint:gosec // path built from fixed layout
	if err != nil {
		return "", fmt.Errorf("failed to read context file %s: %w", file, err)
	}
	logging.Info(ctx, "injecting context", slog.String("file", file))
	return string(data), nil
}

// NameAndStage maps an event to the context file name and stage. It
// reports false for events that carry no usable name. SubagentStop is
// handled separately by Inject.
func NameAndStage(ev *event.Event) (name, stage string, ok bool) {
	switch ev.HookEventName {
	case event.SlashCommandStart, event.SlashCommandEnd:
		if ev.Command == "" {
			return "", "", false
		}
		return commandName(ev.Command), startOrEnd(ev.HookEventName == event.SlashCommandStart), true
	case event.SkillStart, event.SkillEnd:
		if ev.Skill == "" {
			return "", "", false
		}
		return stripNamespace(ev.Skill), startOrEnd(ev.HookEventName == event.SkillStart), true
	case event.PreToolUse:
		if ev.ToolName == "" {
			return "", "", false
		}
		return strings.ToLower(ev.ToolName), StagePre, true
	case event.PostToolUse:
		if ev.ToolName == "" {
			return "", "", false
		}
		return strings.ToLower(ev.ToolName), StagePost, true
	case event.UserPromptSubmit:
		return "prompt", StageSubmit, true
	case event.Stop:
		return "agent", StageStop, true
	case event.SessionStart:
		return "session", StageStart, true
	case event.SessionEnd:
		return "session", StageEnd, true
	case event.Notification:
		return "notification", StageReceive, true
	default:
		return "", "", false
	}
}

// Discover returns the first existing context file for name and stage,
// checking the project before the plugin. It returns "" when none exists.
func (in *Injector) Discover(ctx context.Context, projectDir, name, stage string) string {
	for _, base := range in.bases(projectDir) {
		for _, p := range candidates(base.dir, name, stage) {
			if fileExists(p) {
				logging.Debug(ctx, "found context file", slog.String("path", p), slog.String("tier", base.tier))
				return p
			}
		}
	}
	return ""
}

// discoverAgent resolves SubagentStop context. Priority:
//  1. Project {agent}-{command}-{stage}.md, then {agent}-{stage}.md
//  2. Plugin, same two names
//  3. Discover with the active command or skill
func (in *Injector) discoverAgent(ctx context.Context, projectDir, agent, work, stage string) string {
	agent = stripNamespace(agent)
	work = commandName(work)

	for _, base := range in.bases(projectDir) {
		var names []string
		if work != "" {
			names = append(names, fmt.Sprintf("%s-%s-%s.md", agent, work, stage))
		}
		names = append(names, fmt.Sprintf("%s-%s.md", agent, stage))

		for _, n := range names {
			p := filepath.Join(base.dir, n)
			if fileExists(p) {
				logging.Debug(ctx, "found agent context file", slog.String("path", p), slog.String("tier", base.tier))
				return p
			}
		}
	}

	if work != "" {
		return in.Discover(ctx, projectDir, work, stage)
	}
	return ""
}

type base struct {
	tier string
	dir  string
}

func (in *Injector) bases(projectDir string) []base {
	bases := []base{{tier: "project", dir: filepath.Join(projectDir, paths.ProjectContext)}}
	if in.PluginRoot != "" {
		bases = append(bases, base{tier: "plugin", dir: filepath.Join(in.PluginRoot, paths.PluginContextDir)})
	}
	return bases
}

func (in *Injector) store(projectDir string) *session.Store {
	if in.OpenStore != nil {
		return in.OpenStore(projectDir)
	}
	return session.NewStore(projectDir)
}

// candidates lists lookup paths in priority order: flat, slash-command
// flat, slash-command nested, skill flat, skill nested.
func candidates(dir, name, stage string) []string {
	file := name + "-" + stage + ".md"
	return []string{
		filepath.Join(dir, file),
		filepath.Join(dir, "slash-command", file),
		filepath.Join(dir, "slash-command", name, stage+".md"),
		filepath.Join(dir, "skill", file),
		filepath.Join(dir, "skill", name, stage+".md"),
	}
}

func activeWork(state *session.State) string {
	if state.ActiveCommand != nil && *state.ActiveCommand != "" {
		return *state.ActiveCommand
	}
	if state.ActiveSkill != nil {
		return *state.ActiveSkill
	}
	return ""
}

// commandName strips a leading slash and any "namespace:" prefix, so
// "/plugin:code-review" becomes "code-review".
func commandName(s string) string {
	return stripNamespace(strings.TrimPrefix(s, "/"))
}

func stripNamespace(s string) string {
	if i := strings.Index(s, ":"); i > 0 {
		return s[i+1:]
	}
	return s
}

func startOrEnd(start bool) string {
	if start {
		return StageStart
	}
	return StageEnd
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
