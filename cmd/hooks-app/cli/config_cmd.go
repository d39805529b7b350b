package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/config"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/jsonutil"
)

// Output formats for config show.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective gates configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigValidateCmd(a))

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var formatFlag string
	var diffFlag bool

	cmd := &cobra.Command{
		Use:   "show [cwd]",
		Short: "Print the merged configuration for a project",
		Long: `Print the configuration the dispatcher would use for a project: the
plugin's hooks/gates.json merged with the project's .claude/gates.json (or
gates.json).

With --diff, show what the project changes relative to the plugin defaults.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if formatFlag != formatJSON && formatFlag != formatYAML {
				return fmt.Errorf("unsupported format %q (use json or yaml)", formatFlag)
			}

			loader := config.NewLoader(a.settings.PluginRoot)
			dir := projectArg(args)

			cfg, err := loader.Load(cmd.Context(), dir)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			effective, err := encodeConfig(cfg, formatFlag)
			if err != nil {
				return err
			}

			if !diffFlag {
				fmt.Fprint(cmd.OutOrStdout(), effective)
				return nil
			}

			tiers, err := loader.LoadTiers(cmd.Context(), dir)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			base, label := tiers.Plugin, tiers.PluginPath
			if base == nil {
				base, label = &config.GatesConfig{Hooks: map[string]config.HookSpec{}, Gates: map[string]config.GateSpec{}}, "no plugin configuration"
			}
			defaults, err := encodeConfig(base, formatFlag)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "--- %s\n+++ effective configuration\n", label)
			writeLineDiff(cmd.OutOrStdout(), defaults, effective)
			return nil
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", formatJSON, "Output format: json or yaml")
	cmd.Flags().BoolVar(&diffFlag, "diff", false, "Show changes relative to the plugin defaults")

	return cmd
}

func newConfigValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [cwd]",
		Short: "Check the merged configuration for errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(a.settings.PluginRoot).Load(cmd.Context(), projectArg(args))
			if err != nil {
				var cfgErr *config.ConfigError
				if errors.As(err, &cfgErr) {
					fmt.Fprintf(cmd.ErrOrStderr(), "Invalid configuration: %v\n", err)
					return NewSilentError(err)
				}
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (%d hooks, %d gates)\n", len(cfg.Hooks), len(cfg.Gates))
			for _, hook := range cfg.HookNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", hook, strings.Join(cfg.Hooks[hook].Gates, ", "))
			}
			return nil
		},
	}
}

func projectArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return "."
}

func encodeConfig(cfg *config.GatesConfig, format string) (string, error) {
	if format == formatYAML {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("failed to encode configuration: %w", err)
		}
		return string(data), nil
	}

	data, err := jsonutil.MarshalIndentWithNewline(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}
	return string(data), nil
}

// writeLineDiff writes a line-oriented diff of before and after, prefixing
// removed lines with "- ", added with "+ " and unchanged with "  ".
func writeLineDiff(w io.Writer, before, after string) {
	dmp := diffmatchpatch.New()

	// Convert to line-based diff using DiffLinesToChars/DiffCharsToLines pattern
	text1, text2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(text1, text2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}
			fmt.Fprint(w, prefix+line)
		}
	}
}
