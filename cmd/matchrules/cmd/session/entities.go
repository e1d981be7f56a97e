package session

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/matchrules/internal/cmd/application"
	"github.com/agentstation/matchrules/internal/cmd/cmdutil"
	"github.com/agentstation/matchrules/internal/cmd/completion"
	"github.com/agentstation/matchrules/internal/cmd/output"
	"github.com/agentstation/matchrules/pkg/errors"
)

// NewEntitiesCommand creates the entities command.
func NewEntitiesCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entities",
		GroupID: "session",
		Short:   "Manage the source and target entities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newLoadCommand(app))
	return cmd
}

func newLoadCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load source and target records from JSON or YAML files",
		Long: `Load replaces the source and/or target records of the session. Each file
holds a list of records; every record needs a unique id field. Nested
"metadata" values are lifted to "metadata.<key>" fields.`,
		Example: `  matchrules entities load --sources sensors.json --targets assets.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sourcesPath := cmdutil.MustGetString(cmd, "sources")
			targetsPath := cmdutil.MustGetString(cmd, "targets")
			if sourcesPath == "" && targetsPath == "" {
				return errors.NewValidationError("sources", nil, "--sources or --targets is required")
			}

			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}
			if sourcesPath != "" {
				records, err := cmdutil.ReadRecords(sourcesPath)
				if err != nil {
					return err
				}
				if err := s.SetSources(records); err != nil {
					return err
				}
			}
			if targetsPath != "" {
				records, err := cmdutil.ReadRecords(targetsPath)
				if err != nil {
					return err
				}
				if err := s.SetTargets(records); err != nil {
					return err
				}
			}
			if err := app.SaveSession(cmd.Context(), s); err != nil {
				return err
			}
			return cmdutil.Print(cmd, app, output.Summarize(s))
		},
	}

	cmd.Flags().String("sources", "", "File with source records")
	cmd.Flags().String("targets", "", "File with target records")
	_ = cmd.RegisterFlagCompletionFunc("sources", completion.DataFiles)
	_ = cmd.RegisterFlagCompletionFunc("targets", completion.DataFiles)

	return cmd
}
