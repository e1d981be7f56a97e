// Package session provides the commands creating and inspecting the session
// state file and loading its entities.
package session

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/cmd/application"
	"github.com/agentstation/matchrules/internal/cmd/cmdutil"
	"github.com/agentstation/matchrules/internal/cmd/output"
	"github.com/agentstation/matchrules/pkg/errors"
)

// NewInitCommand creates the init command.
func NewInitCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init",
		GroupID: "session",
		Short:   "Create a new session state file",
		Long: `Init creates an empty session with the default match set and writes it
to the state file. Entities are loaded afterwards with 'matchrules entities load'.`,
		Example: `  matchrules init --project plant-a
  matchrules init --state plant-a.yaml --source-id sensor_id --target-id asset_id`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := app.StatePath()
			if _, err := os.Stat(path); err == nil && !cmdutil.MustGetBool(cmd, "force") {
				return errors.NewAlreadyExistsError("state file", path)
			}

			s, err := app.NewSession(
				matchrules.WithProject(cmdutil.MustGetString(cmd, "project")),
				matchrules.WithIDFields(cmdutil.MustGetString(cmd, "source-id"), cmdutil.MustGetString(cmd, "target-id")),
			)
			if err != nil {
				return err
			}
			if err := app.SaveSession(cmd.Context(), s); err != nil {
				return err
			}
			app.Logger().Info().Str("path", path).Msg("Session created")
			return cmdutil.Print(cmd, app, output.Summarize(s))
		},
	}

	cmd.Flags().String("project", "", "Project name")
	cmd.Flags().String("source-id", "", "Id field of source records (default \"id\")")
	cmd.Flags().String("target-id", "", "Id field of target records (default \"id\")")
	cmd.Flags().Bool("force", false, "Overwrite an existing state file")

	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: "session",
		Short:   "Show a summary of the session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app, output.Summarize(s))
		},
	}
}
