package session

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/matchrules/internal/cmd/application"
	"github.com/agentstation/matchrules/internal/cmd/cmdutil"
	"github.com/agentstation/matchrules/internal/cmd/output"
)

// NewFieldsCommand creates the fields command.
func NewFieldsCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fields",
		GroupID: "session",
		Short:   "Select the entity fields sent to the rule services",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newFieldsSetCommand(app))
	return cmd
}

func newFieldsSetCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the selected source and/or target fields",
		Long: `Set replaces the field selection of one or both sides. The id field is
always kept. Only the given side changes.`,
		Example: `  matchrules fields set --sources name,metadata.site --targets name`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("sources") {
				if err := s.SetSourceFields(cmdutil.MustGetStringSlice(cmd, "sources")); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("targets") {
				if err := s.SetTargetFields(cmdutil.MustGetStringSlice(cmd, "targets")); err != nil {
					return err
				}
			}
			if err := app.SaveSession(cmd.Context(), s); err != nil {
				return err
			}
			return cmdutil.Print(cmd, app, output.Summarize(s))
		},
	}

	cmd.Flags().StringSlice("sources", nil, "Source fields (comma-separated)")
	cmd.Flags().StringSlice("targets", nil, "Target fields (comma-separated)")

	return cmd
}
