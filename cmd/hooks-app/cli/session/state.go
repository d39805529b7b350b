// Package session persists the per-project state that correlates otherwise
// stateless hook invocations.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/jsonutil"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/logging"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/paths"
)

// Key names a field of State.
type Key string

// State keys.
const (
	KeySessionID      Key = "session_id"
	KeyStartedAt      Key = "started_at"
	KeyActiveCommand  Key = "active_command"
	KeyActiveSkill    Key = "active_skill"
	KeyEditedFiles    Key = "edited_files"
	KeyFileExtensions Key = "file_extensions"
	KeyMetadata       Key = "metadata"
)

var (
	// ErrInvalidKey is returned for keys that do not name a State field or
	// that are not valid for the requested operation.
	ErrInvalidKey = errors.New("invalid session key")

	// ErrInvalidValue is returned when Set receives a value of the wrong type.
	ErrInvalidValue = errors.New("invalid session value")
)

// sessionIDLayout renders the start time with punctuation removed,
// e.g. "2025-11-23T14-30-45".
const sessionIDLayout = "2006-01-02T15-04-05"

// State is the per-project session record.
// This is stored in <project>/.claude/session/state.json
type State struct {
	// SessionID is generated once from the start time
	SessionID string `json:"session_id"`

	// StartedAt is when the state was first created
	StartedAt string `json:"started_at"`

	// ActiveCommand is the slash command currently running, e.g. "/execute"
	ActiveCommand *string `json:"active_command"`

	// ActiveSkill is the skill currently running, e.g. "executing-plans"
	ActiveSkill *string `json:"active_skill"`

	// EditedFiles lists files edited during the session, deduplicated
	EditedFiles []string `json:"edited_files"`

	// FileExtensions lists extensions of edited files, deduplicated
	FileExtensions []string `json:"file_extensions"`

	// Metadata holds workflow-specific values
	Metadata map[string]any `json:"metadata"`
}

// Keys returns every State key in declaration order.
func Keys() []Key {
	return []Key{
		KeySessionID, KeyStartedAt, KeyActiveCommand, KeyActiveSkill,
		KeyEditedFiles, KeyFileExtensions, KeyMetadata,
	}
}

// IsKey reports whether k names a State field.
func IsKey(k string) bool {
	return slices.Contains(Keys(), Key(k))
}

// IsArrayKey reports whether k names one of the deduplicated string sets.
func IsArrayKey(k string) bool {
	return Key(k) == KeyEditedFiles || Key(k) == KeyFileExtensions
}

// IsSettableKey reports whether k may be changed through Set.
func IsSettableKey(k string) bool {
	switch Key(k) {
	case KeyActiveCommand, KeyActiveSkill, KeyMetadata:
		return true
	default:
		return false
	}
}

// Store persists one State per project directory.
//
// Every operation re-reads the file, so two stores for the same directory
// observe each other's writes. Writes are atomic (temp file + rename) but not
// locked: concurrent appends from separate processes can lose an update.
// Hooks run serially in normal host operation.
type Store struct {
	stateFile string
	now       func() time.Time
}

// NewStore creates a store for the project at projectDir.
func NewStore(projectDir string) *Store {
	return &Store{
		stateFile: paths.SessionStatePath(projectDir),
		now:       time.Now,
	}
}

// NewStoreWithClock creates a store whose new states use now for their
// identifier and start time. This is useful for testing.
func NewStoreWithClock(projectDir string, now func() time.Time) *Store {
	s := NewStore(projectDir)
	s.now = now
	return s
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.stateFile
}

// Get returns the value stored under key. Scalars come back as *string or
// string, arrays as []string and metadata as map[string]any.
func (s *Store) Get(ctx context.Context, key Key) (any, error) {
	state := s.load(ctx)

	switch key {
	case KeySessionID:
		return state.SessionID, nil
	case KeyStartedAt:
		return state.StartedAt, nil
	case KeyActiveCommand:
		return state.ActiveCommand, nil
	case KeyActiveSkill:
		return state.ActiveSkill, nil
	case KeyEditedFiles:
		return state.EditedFiles, nil
	case KeyFileExtensions:
		return state.FileExtensions, nil
	case KeyMetadata:
		return state.Metadata, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
}

// State returns a snapshot of the whole record.
func (s *Store) State(ctx context.Context) *State {
	return s.load(ctx)
}

// Set replaces a settable field. active_command and active_skill accept a
// string, *string or nil; metadata accepts map[string]any or nil.
func (s *Store) Set(ctx context.Context, key Key, value any) error {
	if !IsKey(string(key)) {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	if !IsSettableKey(string(key)) {
		return fmt.Errorf("%w: %s is read-only or an array (use append)", ErrInvalidKey, key)
	}

	state := s.load(ctx)

	switch key {
	case KeyActiveCommand, KeyActiveSkill:
		v, err := optionalString(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == KeyActiveCommand {
			state.ActiveCommand = v
		} else {
			state.ActiveSkill = v
		}
	case KeyMetadata:
		switch v := value.(type) {
		case nil:
			state.Metadata = map[string]any{}
		case map[string]any:
			state.Metadata = v
		default:
			return fmt.Errorf("%w: metadata must be an object, got %T", ErrInvalidValue, value)
		}
	}

	return s.save(state)
}

// Append adds value to an array field unless it is already present.
func (s *Store) Append(ctx context.Context, key Key, value string) error {
	if !IsArrayKey(string(key)) {
		return fmt.Errorf("%w: %s (must be edited_files or file_extensions)", ErrInvalidKey, key)
	}

	state := s.load(ctx)
	arr := state.array(key)
	if slices.Contains(*arr, value) {
		return nil
	}
	*arr = append(*arr, value)
	return s.save(state)
}

// Contains reports whether an array field holds value.
func (s *Store) Contains(ctx context.Context, key Key, value string) (bool, error) {
	if !IsArrayKey(string(key)) {
		return false, fmt.Errorf("%w: %s (must be edited_files or file_extensions)", ErrInvalidKey, key)
	}
	state := s.load(ctx)
	return slices.Contains(*state.array(key), value), nil
}

// Clear removes the state file. Clearing an absent file is not an error.
func (s *Store) Clear(ctx context.Context) error {
	_ = ctx // Reserved for future use

	if err := os.Remove(s.stateFile); err != nil {
		if os.IsNotExist(err) {
			return nil // Already gone, not an error
		}
		return fmt.Errorf("failed to remove session state file: %w", err)
	}
	return nil
}

func (st *State) array(key Key) *[]string {
	if key == KeyEditedFiles {
		return &st.EditedFiles
	}
	return &st.FileExtensions
}

// load reads the state file, returning a fresh state when the file is
// missing or unreadable. Corruption is treated as absence.
func (s *Store) load(ctx context.Context) *State {
	data, err := os.ReadFile(s.stateFile) //nolint:gosec // path derived from project dir
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Debug(ctx, "session state unreadable, starting fresh",
				slog.String("path", s.stateFile),
				slog.String("error", err.Error()),
			)
		}
		return s.initState()
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		logging.Debug(ctx, "session state corrupt, starting fresh",
			slog.String("path", s.stateFile),
			slog.String("error", err.Error()),
		)
		return s.initState()
	}
	// A state without an id (e.g. a literal null) was never initialized
	if state.SessionID == "" {
		logging.Debug(ctx, "session state has no session_id, starting fresh",
			slog.String("path", s.stateFile),
		)
		return s.initState()
	}
	state.normalize()
	return &state
}

// save writes state atomically: a temp file in the same directory is
// written in full and then renamed over the real file. On failure the temp
// file is removed and the previous state file is left untouched.
func (s *Store) save(state *State) error {
	dir := filepath.Dir(s.stateFile)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create session state directory: %w", err)
	}

	data, err := jsonutil.MarshalIndentWithNewline(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.stateFile)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session state file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("failed to write session state: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return cleanup(fmt.Errorf("failed to write session state: %w", err))
	}
	if err := os.Rename(tmpName, s.stateFile); err != nil {
		return cleanup(fmt.Errorf("failed to rename session state file: %w", err))
	}
	return nil
}

func (s *Store) initState() *State {
	t := s.now().UTC()
	return &State{
		SessionID:      t.Format(sessionIDLayout),
		StartedAt:      t.Format("2006-01-02T15:04:05.000Z07:00"),
		EditedFiles:    []string{},
		FileExtensions: []string{},
		Metadata:       map[string]any{},
	}
}

// normalize fills nil collections so a hand-edited or partial file behaves
// like a fresh one.
func (st *State) normalize() {
	if st.EditedFiles == nil {
		st.EditedFiles = []string{}
	}
	if st.FileExtensions == nil {
		st.FileExtensions = []string{}
	}
	if st.Metadata == nil {
		st.Metadata = map[string]any{}
	}
}

func optionalString(value any) (*string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *string:
		return v, nil
	case string:
		return &v, nil
	default:
		return nil, fmt.Errorf("%w: expected string or null, got %T", ErrInvalidValue, value)
	}
}

// FileExtension returns the text after the last dot of path's base name,
// or "" when there is no dot. "README" has no extension; "main.ts" yields "ts".
func FileExtension(path string) string {
	base := filepath.Base(path)
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return base[i+1:]
}
