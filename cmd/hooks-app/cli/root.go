package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/settings"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/telemetry"
)

const hostUsage = `

Hook dispatch:
  With no subcommand, hooks-app reads one hook event as JSON from stdin,
  runs the gates configured for it in gates.json and writes the decision
  as JSON to stdout. Configuration is read from the plugin's
  hooks/gates.json and the project's .claude/gates.json (or gates.json).

`

const environmentHelp = `
Environment Variables:
  CLAUDE_PLUGIN_ROOT            Plugin bundle directory (or --plugin-root)
  TURBOSHOVEL_LOG               Set to 1 to write JSON logs (see log-path)
  TURBOSHOVEL_LOG_LEVEL         debug, info, warn or error (default info)
  TURBOSHOVEL_TELEMETRY         Set to 1 to send anonymous usage events
  TURBOSHOVEL_TELEMETRY_OPTOUT  Set to any value to disable telemetry
  ACCESSIBLE                    Set to any value (e.g., ACCESSIBLE=1) to use
                                simpler text prompts instead of interactive
                                TUI elements, which works better with
                                screen readers.
`

// Version information (can be set at build time)
var (
	Version = "dev"
	Commit  = "unknown"
)

// app holds state shared by the command tree for one invocation.
type app struct {
	lookup     func(string) (string, bool)
	pluginRoot string
	settings   settings.Settings
}

// NewRootCmd builds the hooks-app command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(os.LookupEnv)
}

func newRootCmd(lookup func(string) (string, bool)) *cobra.Command {
	a := &app{lookup: lookup}

	cmd := &cobra.Command{
		Use:   "hooks-app",
		Short: "Gate dispatcher for agent hook events",
		Long:  "Runs the gates configured in gates.json for agent lifecycle hook events." + hostUsage + environmentHelp,
		Args:  cobra.NoArgs,
		// Let main.go handle error printing to avoid duplication
		SilenceErrors: true,
		// Hide completion command from help but keep it functional
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Arguments are valid by now; runtime errors print their own output
			cmd.SilenceUsage = true
			a.settings = settings.FromLookup(a.lookup).WithPluginRoot(a.pluginRoot)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			// Dispatch reports its own telemetry event
			if cmd == cmd.Root() {
				return
			}
			telemetryClient := telemetry.NewClient(Version, a.settings)
			defer telemetryClient.Close()
			telemetryClient.TrackCommand(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runHook(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.pluginRoot, "plugin-root", "", "plugin bundle directory (overrides $CLAUDE_PLUGIN_ROOT)")

	cmd.AddCommand(newSessionCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newLogPathCmd(a))
	cmd.AddCommand(newLogDirCmd(a))
	cmd.AddCommand(newVersionCmd())

	// Replace default help command with custom one that supports -t flag
	cmd.SetHelpCommand(NewHelpCmd(cmd))

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "hooks-app %s (%s)\n", Version, Commit)
			fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
