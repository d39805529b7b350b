package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/dispatch"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/gate"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/testutil"
)

type runResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, env map[string]string, stdin string, args ...string) runResult {
	t.Helper()

	cmd := newRootCmd(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func hookInput(t *testing.T, fields map[string]any) string {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	return string(data)
}

// isolateLogs keeps the unconditional invocation log out of the real temp dir.
func isolateLogs(t *testing.T) {
	t.Helper()
	t.Setenv("TMPDIR", t.TempDir())
}

func TestHook_NoConfigurationProducesNoOutput(t *testing.T) {
	isolateLogs(t)
	project := t.TempDir()

	res := runCLI(t, nil, hookInput(t, map[string]any{
		"hook_event_name": "PostToolUse",
		"cwd":             project,
		"tool_name":       "Edit",
		"tool_input":      map[string]any{},
	}))
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	assert.Empty(t, res.stderr)
}

func TestHook_InvalidJSON(t *testing.T) {
	isolateLogs(t)

	res := runCLI(t, nil, `{"hook_event_name": `)
	var silent *SilentError
	require.ErrorAs(t, res.err, &silent)
	assert.Equal(t, `{"continue":false,"message":"Invalid JSON input"}`+"\n", res.stderr)
	assert.Empty(t, res.stdout)
}

func TestHook_MissingFieldsExitsCleanly(t *testing.T) {
	isolateLogs(t)

	for _, input := range []string{`{"tool_name": "Edit"}`, `[]`, `"x"`} {
		res := runCLI(t, nil, input)
		require.NoError(t, res.err, input)
		assert.Empty(t, res.stdout, input)
		assert.Empty(t, res.stderr, input)
	}
}

func TestHook_ContextAndBlockOutput(t *testing.T) {
	isolateLogs(t)
	project := t.TempDir()
	testutil.WriteProjectGates(t, project, `{
		"hooks": {
			"UserPromptSubmit": {"gates": ["reminder"]},
			"PostToolUse": {"enabled_tools": ["Edit"], "gates": ["lint"]}
		},
		"gates": {
			"reminder": {"command": "echo remember the plan"},
			"lint": {"command": "exit 1", "on_fail": "BLOCK"}
		}
	}`)

	res := runCLI(t, nil, hookInput(t, map[string]any{
		"hook_event_name": "UserPromptSubmit",
		"cwd":             project,
		"user_message":    "hello",
	}))
	require.NoError(t, res.err)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, map[string]any{"additionalContext": "\nremember the plan\n"}, out)

	res = runCLI(t, nil, hookInput(t, map[string]any{
		"hook_event_name": "PostToolUse",
		"cwd":             project,
		"tool_name":       "Edit",
		"file_path":       "main.go",
	}))
	require.NoError(t, res.err)
	var blocked map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &blocked))
	assert.Equal(t, map[string]any{"decision": "block", "reason": "Gate failed"}, blocked)
}

func TestHook_ConfigErrorReportsUnexpectedError(t *testing.T) {
	isolateLogs(t)
	project := t.TempDir()
	testutil.WriteProjectGates(t, project, `{"hooks": {"InvalidHook": {}}, "gates": {}}`)

	res := runCLI(t, nil, hookInput(t, map[string]any{"hook_event_name": "Stop", "cwd": project}))
	var silent *SilentError
	require.ErrorAs(t, res.err, &silent)
	assert.Empty(t, res.stdout)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stderr), &out))
	assert.Equal(t, false, out["continue"])
	assert.Contains(t, out["message"], "Unexpected error: ")
	assert.Contains(t, out["message"], "Unknown hook event: InvalidHook")
}

func TestHook_PluginRootFlagOverridesEnv(t *testing.T) {
	isolateLogs(t)
	plugins := t.TempDir()
	root := testutil.WritePlugin(t, plugins, "turboshovel", `{
		"hooks": {"SessionStart": {"gates": ["plugin-path"]}},
		"gates": {"plugin-path": {}}
	}`)
	env := map[string]string{"CLAUDE_PLUGIN_ROOT": filepath.Join(plugins, "elsewhere")}

	res := runCLI(t, env, hookInput(t, map[string]any{"hook_event_name": "SessionStart", "cwd": t.TempDir()}),
		"--plugin-root", root)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "CLAUDE_PLUGIN_ROOT="+root)
}

func TestDecision(t *testing.T) {
	t.Parallel()

	assert.Equal(t, gate.Result{}, *decision(&dispatch.Result{}))
	assert.Equal(t, gate.Result{AdditionalContext: "ctx"}, *decision(&dispatch.Result{Context: "ctx"}))

	blocked := decision(&dispatch.Result{Context: "ctx", BlockReason: "nope"})
	assert.Equal(t, gate.DecisionBlock, blocked.Decision)
	assert.Equal(t, "nope", blocked.Reason)
	assert.Nil(t, blocked.Continue)

	stopped := decision(&dispatch.Result{StopMessage: "halt"})
	require.NotNil(t, stopped.Continue)
	assert.False(t, *stopped.Continue)
	assert.Equal(t, "halt", stopped.Message)

	var buf bytes.Buffer
	require.NoError(t, writeDecision(&buf, stopped))
	assert.Equal(t, `{"continue":false,"message":"halt"}`+"\n", buf.String())

	buf.Reset()
	require.NoError(t, writeDecision(&buf, &gate.Result{}))
	assert.Empty(t, buf.String())
}

func TestSession_SetGetClear(t *testing.T) {
	t.Parallel()
	project := t.TempDir()

	res := runCLI(t, nil, "", "session", "set", "active_command", "/execute", project)
	require.NoError(t, res.err)
	assert.Contains(t, testutil.ReadFile(t, project, ".claude/session/state.json"), `"active_command": "/execute"`)

	res = runCLI(t, nil, "", "session", "get", "active_command", project)
	require.NoError(t, res.err)
	assert.Equal(t, "/execute\n", res.stdout)

	res = runCLI(t, nil, "", "session", "set", "active_command", "null", project)
	require.NoError(t, res.err)
	res = runCLI(t, nil, "", "session", "get", "active_command", project)
	require.NoError(t, res.err)
	assert.Equal(t, "\n", res.stdout)

	res = runCLI(t, nil, "", "session", "set", "metadata", `{"phase":"review"}`, project)
	require.NoError(t, res.err)
	res = runCLI(t, nil, "", "session", "get", "metadata", project)
	require.NoError(t, res.err)
	assert.JSONEq(t, `{"phase":"review"}`, res.stdout)

	res = runCLI(t, nil, "", "session", "set", "active_skill", "brainstorming", project)
	require.NoError(t, res.err)
	res = runCLI(t, nil, "", "session", "clear", project)
	require.NoError(t, res.err)
	res = runCLI(t, nil, "", "session", "get", "active_skill", project)
	require.NoError(t, res.err)
	assert.Equal(t, "\n", res.stdout)
}

func TestSession_AppendAndContains(t *testing.T) {
	t.Parallel()
	project := t.TempDir()

	for _, f := range []string{"file1.ts", "file2.ts", "file1.ts"} {
		res := runCLI(t, nil, "", "session", "append", "edited_files", f, project)
		require.NoError(t, res.err)
	}

	res := runCLI(t, nil, "", "session", "get", "edited_files", project)
	require.NoError(t, res.err)
	assert.Equal(t, `["file1.ts","file2.ts"]`+"\n", res.stdout)

	res = runCLI(t, nil, "", "session", "contains", "edited_files", "file2.ts", project)
	require.NoError(t, res.err)

	res = runCLI(t, nil, "", "session", "contains", "edited_files", "file3.ts", project)
	var silent *SilentError
	require.ErrorAs(t, res.err, &silent)
	assert.Empty(t, res.stderr)
}

func TestSession_InvalidUsage(t *testing.T) {
	t.Parallel()
	project := t.TempDir()

	tests := []struct {
		name       string
		args       []string
		wantStderr string
	}{
		{name: "invalid_key", args: []string{"session", "get", "invalid_key", project}, wantStderr: "Invalid session key: invalid_key"},
		{name: "append_scalar_key", args: []string{"session", "append", "session_id", "value", project}, wantStderr: "Invalid array key"},
		{name: "contains_scalar_key", args: []string{"session", "contains", "metadata", "value", project}, wantStderr: "Invalid array key"},
		{name: "set_read_only", args: []string{"session", "set", "session_id", "value", project}, wantStderr: "Cannot set session_id"},
		{name: "set_array", args: []string{"session", "set", "edited_files", "x", project}, wantStderr: "Cannot set edited_files"},
		{name: "bad_metadata", args: []string{"session", "set", "metadata", "{not json", project}, wantStderr: "Session error:"},
		{name: "metadata_not_object", args: []string{"session", "set", "metadata", `["a"]`, project}, wantStderr: "Session error:"},
		{name: "no_subcommand", args: []string{"session"}, wantStderr: "Usage:"},
		{name: "unknown_subcommand", args: []string{"session", "unknown", project}, wantStderr: "Unknown session command: unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := runCLI(t, nil, "", tt.args...)
			var silent *SilentError
			require.ErrorAs(t, res.err, &silent)
			assert.Contains(t, res.stderr, tt.wantStderr)
		})
	}
}

func TestSession_ClearWithoutTerminalSkipsPrompt(t *testing.T) {
	t.Parallel()
	project := t.TempDir()

	require.NoError(t, runCLI(t, nil, "", "session", "append", "file_extensions", "ts", project).err)
	res := runCLI(t, map[string]string{"ACCESSIBLE": "1"}, "y\n", "session", "clear", project)
	require.NoError(t, res.err)
	assert.False(t, testutil.FileExists(project, filepath.Join(".claude", "session", "state.json")))
}

func TestConfigShow(t *testing.T) {
	t.Parallel()
	project := t.TempDir()
	testutil.WriteProjectGates(t, project, `{
		// project gates
		"hooks": {"PostToolUse": {"gates": ["lint"]}},
		"gates": {"lint": {"command": "make lint", "on_fail": "BLOCK"}},
	}`)

	res := runCLI(t, nil, "", "config", "show", project)
	require.NoError(t, res.err)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &cfg))
	assert.Contains(t, cfg["gates"], "lint")

	res = runCLI(t, nil, "", "config", "show", "--format", "yaml", project)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "command: make lint")
	assert.Contains(t, res.stdout, "on_fail: BLOCK")

	res = runCLI(t, nil, "", "config", "show", "--format", "toml", project)
	require.Error(t, res.err)
}

func TestConfigShow_Diff(t *testing.T) {
	t.Parallel()
	plugins := t.TempDir()
	root := testutil.WritePlugin(t, plugins, "turboshovel", `{"hooks": {}, "gates": {}}`)
	project := t.TempDir()
	testutil.WriteProjectGates(t, project, `{"hooks": {}, "gates": {"lint": {"command": "make lint"}}}`)

	res := runCLI(t, nil, "", "--plugin-root", root, "config", "show", "--diff", project)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "--- "+filepath.Join(root, "hooks", "gates.json"))
	assert.Contains(t, res.stdout, "+++ effective configuration")
	assert.Regexp(t, regexp.MustCompile(`(?m)^\+ .*"command": "make lint"`), res.stdout)
	assert.Regexp(t, regexp.MustCompile(`(?m)^  .*"hooks": \{\}`), res.stdout)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := t.TempDir()
	testutil.WriteProjectGates(t, valid, `{"hooks": {"Stop": {"gates": ["check"]}}, "gates": {"check": {"command": "true"}}}`)
	res := runCLI(t, nil, "", "config", "validate", valid)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Configuration is valid (1 hooks, 1 gates)")
	assert.Contains(t, res.stdout, "Stop: check")

	invalid := t.TempDir()
	testutil.WriteProjectGates(t, invalid, `{"hooks": {"Bogus": {}}, "gates": {}}`)
	res = runCLI(t, nil, "", "config", "validate", invalid)
	var silent *SilentError
	require.ErrorAs(t, res.err, &silent)
	assert.Contains(t, res.stderr, "Invalid configuration: Unknown hook event: Bogus")
}

func TestLogPathAndDir(t *testing.T) {
	t.Parallel()

	dir := runCLI(t, nil, "", "log-dir")
	require.NoError(t, dir.err)
	logDir := strings.TrimSpace(dir.stdout)
	assert.Equal(t, "turboshovel", filepath.Base(logDir))

	path := runCLI(t, nil, "", "log-path")
	require.NoError(t, path.err)
	logPath := strings.TrimSpace(path.stdout)
	assert.Equal(t, logDir, filepath.Dir(logPath))
	assert.Regexp(t, `^hooks-\d{4}-\d{2}-\d{2}\.log$`, filepath.Base(logPath))
}

func TestVersionAndHelpTree(t *testing.T) {
	t.Parallel()

	res := runCLI(t, nil, "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "hooks-app dev (unknown)")

	res = runCLI(t, nil, "", "help", "-t")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "hooks-app\n"))
	assert.Contains(t, res.stdout, "├── session - Read and update per-project session state")
	assert.Contains(t, res.stdout, "│   ├── append")
	assert.NotContains(t, res.stdout, "help")
}

func TestRoot_RejectsUnknownArguments(t *testing.T) {
	t.Parallel()

	res := runCLI(t, nil, "", "bogus")
	require.Error(t, res.err)
}
