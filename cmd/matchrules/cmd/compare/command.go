// Package compare provides the command comparing two match sets.
package compare

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/matchrules/internal/cmd/application"
	"github.com/agentstation/matchrules/internal/cmd/cmdutil"
	"github.com/agentstation/matchrules/internal/cmd/completion"
	"github.com/agentstation/matchrules/internal/cmd/output"
	"github.com/agentstation/matchrules/pkg/compare"
	"github.com/agentstation/matchrules/pkg/errors"
)

// NewCommand creates the compare command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "compare [first second]",
		GroupID: "rules",
		Short:   "Compare two match sets or a set against the rule output",
		Long: `Compare classifies every source of two match sets: agreed, disagreed,
present on one side only, or ambiguous on one side. "rule_output" names the
matches produced by the current rules. Without arguments the default pair is
compared.`,
		Example: `  matchrules compare
  matchrules compare rule_output curated --summary`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return errors.NewValidationError("args", strings.Join(args, " "), "expected no keys or two keys")
			}
			return nil
		},
		ValidArgsFunction: completion.ComparisonKeys(app),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}

			var result compare.Result
			if len(args) == 2 {
				if result, err = s.Compare(args[0], args[1]); err != nil {
					return err
				}
			} else {
				result = s.Comparison()
			}

			view := output.Comparison(result)
			if cmdutil.MustGetBool(cmd, "summary") {
				return cmdutil.Print(cmd, app, view.Summarize())
			}
			return cmdutil.Print(cmd, app, view)
		},
	}

	cmd.Flags().Bool("summary", false, "Only show the counts per category")

	return cmd
}
