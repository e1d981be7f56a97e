package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/matchrules/cmd/matchrules/cmd/compare"
	"github.com/agentstation/matchrules/cmd/matchrules/cmd/completion"
	"github.com/agentstation/matchrules/cmd/matchrules/cmd/matchsets"
	"github.com/agentstation/matchrules/cmd/matchrules/cmd/rules"
	"github.com/agentstation/matchrules/cmd/matchrules/cmd/serve"
	"github.com/agentstation/matchrules/cmd/matchrules/cmd/session"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Session commands
	rootCmd.AddCommand(session.NewInitCommand(a))
	rootCmd.AddCommand(session.NewStatusCommand(a))
	rootCmd.AddCommand(session.NewEntitiesCommand(a))
	rootCmd.AddCommand(session.NewFieldsCommand(a))
	rootCmd.AddCommand(matchsets.NewCommand(a))
	rootCmd.AddCommand(matchsets.NewMatchesCommand(a))

	// Rule commands
	rootCmd.AddCommand(rules.NewCommand(a))
	rootCmd.AddCommand(compare.NewCommand(a))

	// Server commands
	rootCmd.AddCommand(serve.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
	rootCmd.AddCommand(completion.NewCommand())
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("matchrules %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
