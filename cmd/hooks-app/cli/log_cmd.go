package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/logging"
)

func newLogPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "log-path",
		Short: "Print today's log file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), logging.FilePath(a.settings))
		},
	}
}

func newLogDirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "log-dir",
		Short: "Print the log directory",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), logging.Dir(a.settings))
		},
	}
}
