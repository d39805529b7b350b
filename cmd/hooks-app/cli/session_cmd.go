package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/logging"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/session"
)

const sessionUsage = "Usage: hooks-app session [get|set|append|contains|clear] ..."

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Read and update per-project session state",
		Long: `Read and update the session state kept in .claude/session/state.json.

Keys:
  session_id, started_at            read-only
  active_command, active_skill      string, or "null" to unset
  metadata                          JSON object
  edited_files, file_extensions     deduplicated sets (append, contains)

The optional trailing [cwd] argument selects the project (default ".").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), sessionUsage)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "Unknown session command: %s\n", args[0])
			}
			return NewSilentError(errors.New("invalid session command"))
		},
	}

	cmd.AddCommand(newSessionGetCmd())
	cmd.AddCommand(newSessionSetCmd())
	cmd.AddCommand(newSessionAppendCmd())
	cmd.AddCommand(newSessionContainsCmd())
	cmd.AddCommand(newSessionClearCmd(a))

	return cmd
}

func newSessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key> [cwd]",
		Short: "Print a session value",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !session.IsKey(key) {
				return sessionFailure(cmd, fmt.Sprintf("Invalid session key: %s", key))
			}

			value, err := openStore(args, 1).Get(cmd.Context(), session.Key(key))
			if err != nil {
				return sessionError(cmd, err)
			}

			text, err := formatValue(value)
			if err != nil {
				return sessionError(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newSessionSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value> [cwd]",
		Short: "Set active_command, active_skill or metadata",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, raw := args[0], args[1]
			if !session.IsKey(key) {
				return sessionFailure(cmd, fmt.Sprintf("Invalid session key: %s", key))
			}
			if !session.IsSettableKey(key) {
				return sessionFailure(cmd, fmt.Sprintf("Cannot set %s via CLI (use get, append, or contains)", key))
			}

			value, err := parseValue(session.Key(key), raw)
			if err != nil {
				return sessionError(cmd, err)
			}
			if err := openStore(args, 2).Set(cmd.Context(), session.Key(key), value); err != nil {
				return sessionError(cmd, err)
			}
			return nil
		},
	}
}

func newSessionAppendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "append <key> <value> [cwd]",
		Short: "Add a value to edited_files or file_extensions",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !session.IsArrayKey(key) {
				return sessionFailure(cmd, fmt.Sprintf("Invalid array key: %s (must be edited_files or file_extensions)", key))
			}
			if err := openStore(args, 2).Append(cmd.Context(), session.Key(key), args[1]); err != nil {
				return sessionError(cmd, err)
			}
			return nil
		},
	}
}

func newSessionContainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contains <key> <value> [cwd]",
		Short: "Exit 0 if the set holds value, 1 otherwise",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !session.IsArrayKey(key) {
				return sessionFailure(cmd, fmt.Sprintf("Invalid array key: %s (must be edited_files or file_extensions)", key))
			}
			ok, err := openStore(args, 2).Contains(cmd.Context(), session.Key(key), args[1])
			if err != nil {
				return sessionError(cmd, err)
			}
			if !ok {
				return NewSilentError(fmt.Errorf("%s does not contain %s", key, args[1]))
			}
			return nil
		},
	}
}

func newSessionClearCmd(a *app) *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "clear [cwd]",
		Short: "Delete the session state",
		Long: `Delete the session state file. Clearing an absent state succeeds.

When run from a terminal, prompts for confirmation unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !forceFlag && isTerminal(cmd.InOrStdin()) {
				confirmed, err := confirmClear(a.settings.Accessible)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Clear cancelled.")
					return nil
				}
			}

			if err := openStore(args, 0).Clear(cmd.Context()); err != nil {
				return sessionError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func confirmClear(accessible bool) (bool, error) {
	var confirmed bool

	form := NewAccessibleForm(accessible,
		huh.NewGroup(
			huh.NewConfirm().
				Title("Clear session state for this project?").
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get confirmation: %w", err)
	}

	return confirmed, nil
}

// openStore opens the store for the project named by args[i], or the
// current directory when the argument is absent.
func openStore(args []string, i int) *session.Store {
	dir := "."
	if len(args) > i && args[i] != "" {
		dir = args[i]
	}
	return session.NewStore(dir)
}

// parseValue converts a CLI argument for key. "null" unsets the string keys;
// metadata takes a JSON object.
func parseValue(key session.Key, raw string) (any, error) {
	if key != session.KeyMetadata {
		if raw == "null" {
			return nil, nil
		}
		return raw, nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: metadata must be JSON: %w", session.ErrInvalidValue, err)
	}
	return v, nil
}

// formatValue renders a session value for stdout. Unset values print as an
// empty line; sets and metadata print as JSON.
func formatValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case *string:
		if v == nil {
			return "", nil
		}
		return *v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode value: %w", err)
		}
		return string(data), nil
	}
}

func sessionFailure(cmd *cobra.Command, message string) error {
	fmt.Fprintln(cmd.ErrOrStderr(), message)
	return NewSilentError(errors.New(message))
}

func sessionError(cmd *cobra.Command, err error) error {
	logging.Error(logging.WithComponent(cmd.Context(), "session"), "session command failed",
		slog.String("command", cmd.Name()),
		slog.String("error", err.Error()),
	)
	fmt.Fprintf(cmd.ErrOrStderr(), "Session error: %v\n", err)
	return NewSilentError(err)
}
