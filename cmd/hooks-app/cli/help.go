package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewHelpCmd creates a custom help command that supports a hidden -t flag
// to display the entire command tree.
func NewHelpCmd(rootCmd *cobra.Command) *cobra.Command {
	var showTree bool

	helpCmd := &cobra.Command{
		Use:   "help [command]",
		Short: "Help about any command",
		Long: `Provides help for any hooks-app subcommand.
Simply type '` + rootCmd.Name() + ` help [command]' for full details.`,
		Run: func(cmd *cobra.Command, args []string) {
			if showTree {
				printCommandTree(cmd.OutOrStdout(), rootCmd)
				return
			}

			targetCmd, _, err := rootCmd.Find(args)
			if err != nil || targetCmd == nil {
				targetCmd = rootCmd
			}
			targetCmd.Help() //nolint:errcheck,gosec // Help() only fails on write errors to stdout
		},
	}

	helpCmd.Flags().BoolVarP(&showTree, "tree", "t", false, "Show full command tree")
	helpCmd.Flags().MarkHidden("tree") //nolint:errcheck,gosec // flag is defined above

	return helpCmd
}

func printCommandTree(w io.Writer, cmd *cobra.Command) {
	fmt.Fprintln(w, cmd.Name())
	printChildren(w, cmd, "")
}

func printChildren(w io.Writer, cmd *cobra.Command, indent string) {
	visible := visibleCommands(cmd)
	for i, sub := range visible {
		branch, childIndent := "├── ", indent+"│   "
		if i == len(visible)-1 {
			branch, childIndent = "└── ", indent+"    "
		}

		fmt.Fprintf(w, "%s%s%s", indent, branch, sub.Name())
		if sub.Short != "" {
			fmt.Fprintf(w, " - %s", sub.Short)
		}
		fmt.Fprintln(w)

		printChildren(w, sub, childIndent)
	}
}

func visibleCommands(cmd *cobra.Command) []*cobra.Command {
	var visible []*cobra.Command
	for _, sub := range cmd.Commands() {
		if !sub.Hidden && sub.Name() != "help" {
			visible = append(visible, sub)
		}
	}
	return visible
}
