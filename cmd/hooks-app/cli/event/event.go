// Package event defines the hook event payload the host writes to stdin.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Name is a hook lifecycle event name as sent in hook_event_name.
type Name string

// Hook event names understood by the dispatcher.
const (
	PreToolUse        Name = "PreToolUse"
	PostToolUse       Name = "PostToolUse"
	SubagentStop      Name = "SubagentStop"
	UserPromptSubmit  Name = "UserPromptSubmit"
	SlashCommandStart Name = "SlashCommandStart"
	SlashCommandEnd   Name = "SlashCommandEnd"
	SkillStart        Name = "SkillStart"
	SkillEnd          Name = "SkillEnd"
	SessionStart      Name = "SessionStart"
	SessionEnd        Name = "SessionEnd"
	Stop              Name = "Stop"
	Notification      Name = "Notification"
)

// knownNames keeps the canonical ordering used in error messages.
var knownNames = []Name{
	PreToolUse,
	PostToolUse,
	SubagentStop,
	UserPromptSubmit,
	SlashCommandStart,
	SlashCommandEnd,
	SkillStart,
	SkillEnd,
	SessionStart,
	SessionEnd,
	Stop,
	Notification,
}

// KnownNames returns all hook event names in canonical order.
func KnownNames() []Name {
	return slices.Clone(knownNames)
}

// IsKnown reports whether s is a recognised hook event name.
func IsKnown(s string) bool {
	return slices.Contains(knownNames, Name(s))
}

// ErrMissingFields is returned by Parse when hook_event_name or cwd is empty.
// The host expects such events to be skipped without output.
var ErrMissingFields = errors.New("hook input missing hook_event_name or cwd")

// Event is one hook invocation. It is treated as immutable after Parse.
type Event struct {
	HookEventName Name   `json:"hook_event_name"`
	Cwd           string `json:"cwd"`
	SessionID     string `json:"session_id,omitempty"`

	// PreToolUse / PostToolUse
	ToolName  string          `json:"tool_name,omitempty"`
	FilePath  string          `json:"file_path,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`

	// SubagentStop
	AgentName    string `json:"agent_name,omitempty"`
	SubagentName string `json:"subagent_name,omitempty"`
	Output       string `json:"output,omitempty"`

	// UserPromptSubmit
	UserMessage string `json:"user_message,omitempty"`
	Prompt      string `json:"prompt,omitempty"`

	// SlashCommand / Skill
	Command string `json:"command,omitempty"`
	Skill   string `json:"skill,omitempty"`
}

// toolInputFile is the subset of tool_input that carries an edited path.
type toolInputFile struct {
	FilePath     string `json:"file_path"`
	NotebookPath string `json:"notebook_path"`
}

// Parse reads a single JSON hook event from r.
// Malformed JSON is an error; well-formed input lacking the required
// fields (including non-objects) returns the event together with
// ErrMissingFields.
func Parse(r io.Reader) (*Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes is Parse for an already-read payload.
func ParseBytes(data []byte) (*Event, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("empty input")
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		// Well-formed JSON of the wrong shape is judged by its required fields
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}

	if ev.HookEventName == "" || ev.Cwd == "" {
		return &ev, ErrMissingFields
	}
	return &ev, nil
}

// EditedFile returns the file path touched by a tool event. The top-level
// file_path wins; otherwise tool_input.file_path (or notebook_path) is used.
func (e *Event) EditedFile() string {
	if e.FilePath != "" {
		return e.FilePath
	}
	if len(e.ToolInput) == 0 {
		return ""
	}
	var in toolInputFile
	if err := json.Unmarshal(e.ToolInput, &in); err != nil {
		return ""
	}
	if in.FilePath != "" {
		return in.FilePath
	}
	return in.NotebookPath
}

// Message returns the user prompt text, preferring user_message over prompt.
func (e *Event) Message() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Prompt
}

// Agent returns the completing agent's identifier, falling back from
// agent_name to subagent_name.
func (e *Event) Agent() string {
	if e.AgentName != "" {
		return e.AgentName
	}
	return e.SubagentName
}
