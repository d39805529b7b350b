package builtin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/event"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/gate"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/logging"
	"github.com/turboshovel/hooks/redact"
)

// defaultMaxScanSize skips generated or binary blobs.
const defaultMaxScanSize = 1 << 20

// SecretScan blocks a PostToolUse event whose edited file now contains a
// known-format secret. Other events, and events without a file, pass.
type SecretScan struct {
	// MaxFileSize skips larger files. Zero means no limit.
	MaxFileSize int64
}

// Evaluate scans the edited file with the gitleaks rule set.
func (s *SecretScan) Evaluate(ctx context.Context, ev *event.Event) (*gate.Result, error) {
	if ev.HookEventName != event.PostToolUse {
		return &gate.Result{}, nil
	}
	file := ev.EditedFile()
	if file == "" {
		return &gate.Result{}, nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(ev.Cwd, file)
	}

	info, err := os.Stat(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Deleted or never written
			return &gate.Result{}, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", file, err)
	}
	if info.IsDir() || (s.MaxFileSize > 0 && info.Size() > s.MaxFileSize) {
		logging.Debug(ctx, "secret scan skipped", slog.String("file", file), slog.Int64("size", info.Size()))
		return &gate.Result{}, nil
	}

	data, err := os.ReadFile(file) //nolint:gosec // path is the file the agent just edited
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	findings := redact.Findings(string(data))
	if len(findings) == 0 {
		return &gate.Result{}, nil
	}

	rules := redact.RuleIDs(findings)
	logging.Warn(ctx, "secret scan found potential secrets",
		slog.String("file", file),
		slog.Int("findings", len(findings)),
		slog.String("rules", strings.Join(rules, ",")),
	)
	return gate.Block(fmt.Sprintf("Potential secrets found in %s (%s). Remove them before continuing.",
		ev.EditedFile(), strings.Join(rules, ", "))), nil
}
