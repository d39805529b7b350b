package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/dispatch"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/event"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/gate"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/jsonutil"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/logging"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/telemetry"
	"github.com/turboshovel/hooks/redact"
)

// inputPreviewLen bounds the redacted input logged per invocation.
const inputPreviewLen = 200

// Messages written to stderr when a hook cannot be dispatched.
const (
	invalidInputMessage    = "Invalid JSON input"
	unexpectedErrorMessage = "Unexpected error: "
)

// runHook reads one event from stdin, dispatches it and writes the decision.
func (a *app) runHook(cmd *cobra.Command) error {
	ctx := logging.WithInvocation(cmd.Context())
	ctx = logging.WithComponent(ctx, "hook")

	if err := logging.Init(a.settings); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "[hooks-app] Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	input, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		logging.Error(ctx, "failed to read hook input", slog.String("error", err.Error()))
		return writeFailure(cmd.ErrOrStderr(), unexpectedErrorMessage+err.Error())
	}

	preview := redact.Preview(string(input), inputPreviewLen)
	logging.Always(ctx, "HOOK_INVOKED",
		slog.Int("input_length", len(input)),
		slog.String("input_preview", preview),
	)

	ev, err := event.ParseBytes(input)
	switch {
	case errors.Is(err, event.ErrMissingFields):
		logging.Warn(ctx, "hook input missing required fields, exiting",
			slog.Bool("has_event", ev.HookEventName != ""),
			slog.Bool("has_cwd", ev.Cwd != ""),
		)
		return nil
	case err != nil:
		logging.Error(ctx, "failed to parse hook input",
			slog.String("input_preview", preview),
			slog.String("error", err.Error()),
		)
		return writeFailure(cmd.ErrOrStderr(), invalidInputMessage)
	}

	if ev.SessionID != "" {
		ctx = logging.WithSession(ctx, ev.SessionID)
	}
	logging.Info(ctx, "dispatching hook",
		slog.String("event", string(ev.HookEventName)),
		slog.String("cwd", ev.Cwd),
		slog.String("tool", ev.ToolName),
		slog.String("agent", ev.Agent()),
		slog.String("command", ev.Command),
		slog.String("skill", ev.Skill),
	)

	telemetryClient := telemetry.NewClient(Version, a.settings)
	defer telemetryClient.Close()

	res, err := dispatch.New(a.settings, telemetryClient).Dispatch(ctx, ev)
	if err != nil {
		logging.Error(ctx, "hook dispatch failed", slog.String("error", err.Error()))
		return writeFailure(cmd.ErrOrStderr(), unexpectedErrorMessage+err.Error())
	}

	out := decision(res)
	logging.Info(ctx, "hook completed",
		slog.Bool("has_context", out.AdditionalContext != ""),
		slog.Bool("has_block", out.Decision != ""),
		slog.Bool("has_stop", out.Continue != nil),
	)
	return writeDecision(cmd.OutOrStdout(), out)
}

// decision converts a dispatch result into the host's output shape.
func decision(res *dispatch.Result) *gate.Result {
	out := &gate.Result{AdditionalContext: res.Context}
	if res.BlockReason != "" {
		out.Decision = gate.DecisionBlock
		out.Reason = res.BlockReason
	}
	if res.StopMessage != "" {
		stop := gate.Stop(res.StopMessage)
		out.Continue, out.Message = stop.Continue, stop.Message
	}
	return out
}

// writeDecision prints out as one JSON line, or nothing when it is empty.
func writeDecision(w io.Writer, out *gate.Result) error {
	if *out == (gate.Result{}) {
		return nil
	}
	data, err := jsonutil.MarshalCompact(out)
	if err != nil {
		return fmt.Errorf("failed to encode hook output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// writeFailure tells the host to stop and returns a SilentError so the
// process exits 1 without further output.
func writeFailure(w io.Writer, message string) error {
	data, err := jsonutil.MarshalCompact(gate.Stop(message))
	if err != nil {
		return fmt.Errorf("failed to encode hook output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return NewSilentError(errors.New(message))
}
