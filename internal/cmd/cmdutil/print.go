package cmdutil

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/matchrules/internal/cmd/application"
	"github.com/agentstation/matchrules/internal/cmd/output"
)

// Print writes v to the command output in the configured format.
func Print(cmd *cobra.Command, app application.Application, v any) error {
	format := output.DetectFormat(app.OutputFormat())
	return output.NewFormatter(format).Format(cmd.OutOrStdout(), v)
}
