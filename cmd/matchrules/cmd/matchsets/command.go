// Package matchsets provides the commands managing named match sets and
// their matches.
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

// NewCommand creates the matchsets command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "matchsets",
		Aliases: []string{"sets"},
		GroupID: "session",
		Short:   "Manage named match sets",
		Long: `Match sets are named collections of (source, target) matches. The
"default" set holds the curated examples sent to the rule suggestion service;
further sets can be created for comparison.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newCreateCommand(app))
	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newShowCommand(app))

	return cmd
}

func newCreateCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a match set",
		Example: `  matchsets create curated --from curated.json
  matchsets create reference --reference --field asset_id`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}

			if cmdutil.MustGetBool(cmd, "reference") {
				err = s.CreateReferenceMatchSet(name, cmdutil.MustGetString(cmd, "field"))
			} else {
				var initial []match.Match
				if path := cmdutil.MustGetString(cmd, "from"); path != "" {
					if initial, err = cmdutil.ReadMatches(path); err != nil {
						return err
					}
				}
				err = s.CreateMatchSet(name, initial)
			}
			if err != nil {
				return err
			}

			if err := app.SaveSession(cmd.Context(), s); err != nil {
				return err
			}
			view, err := s.MatchSet(name)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app, output.DescribeMatchSet(view, nil))
		},
	}

	cmd.Flags().String("from", "", "File with initial {sourceId, targetId} matches")
	cmd.Flags().Bool("reference", false, "Derive matches from a source field naming a target id")
	cmd.Flags().String("field", constants.ReferenceIDField, "Source field used with --reference")
	_ = cmd.RegisterFlagCompletionFunc("from", completion.DataFiles)

	return cmd
}

func newListCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List match sets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app, output.ListMatchSets(s))
		},
	}
}

func newShowCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Show the matches of a set (default: \"default\")",
		Example: `  matchsets show
  matchsets show curated --source-label name --target-label name`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completion.MatchSets(app, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := constants.DefaultMatchSet
			if len(args) == 1 {
				name = args[0]
			}
			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}
			view, err := s.MatchSet(name)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app, output.DescribeMatchSet(view, labeler(cmd, s)))
		},
	}
	cmdutil.AddLabelFlags(cmd)
	return cmd
}

// labeler returns the label function selected by the label flags, or nil.
func labeler(cmd *cobra.Command, s *matchrules.Session) output.Labeler {
	sourceField := cmdutil.MustGetString(cmd, "source-label")
	targetField := cmdutil.MustGetString(cmd, "target-label")
	if sourceField == "" && targetField == "" {
		return nil
	}
	return func(m match.Match) (string, string) {
		return s.Label(m, sourceField, targetField)
	}
}
