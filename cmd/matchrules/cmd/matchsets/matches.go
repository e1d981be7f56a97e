package matchsets

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/cmd/application"
	"github.com/agentstation/matchrules/internal/cmd/cmdutil"
	"github.com/agentstation/matchrules/internal/cmd/completion"
	"github.com/agentstation/matchrules/internal/cmd/output"
	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/match"
)

// NewMatchesCommand creates the matches command.
func NewMatchesCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "matches",
		GroupID: "session",
		Short:   "Add or remove matches of a match set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newChangeCommand(app, "add", "Add matches to a set",
		(*matchrules.Session).AddMatch))
	cmd.AddCommand(newChangeCommand(app, "remove", "Remove matches from a set",
		(*matchrules.Session).RemoveMatch))

	return cmd
}

func newChangeCommand(app application.Application, use, short string, change func(*matchrules.Session, string, match.Match) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use + " <source=target>...",
		Aliases: aliases(use),
		Short:   short,
		Example: "  matchrules matches " + use + " 1=10 2=11 --set default",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := cmdutil.MustGetString(cmd, "set")
			ms := make([]match.Match, 0, len(args))
			for _, arg := range args {
				m, err := cmdutil.ParseMatch(arg)
				if err != nil {
					return err
				}
				ms = append(ms, m)
			}

			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}
			// Earlier matches stay applied when a later one is refused.
			var changeErr error
			for _, m := range ms {
				if changeErr = change(s, set, m); changeErr != nil {
					break
				}
			}
			if err := app.SaveSession(cmd.Context(), s); err != nil {
				return err
			}
			if changeErr != nil {
				return changeErr
			}
			view, err := s.MatchSet(set)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app, output.DescribeMatchSet(view, nil))
		},
	}
	cmd.Flags().String("set", constants.DefaultMatchSet, "Match set name")
	_ = cmd.RegisterFlagCompletionFunc("set", completion.MatchSets(app, -1))
	return cmd
}

func aliases(use string) []string {
	if use == "remove" {
		return []string{"rm"}
	}
	return nil
}
