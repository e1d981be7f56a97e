// Package rules provides the commands generating, applying and reviewing
// rules.
package rules

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/cmd/application"
	"github.com/agentstation/matchrules/internal/cmd/cmdutil"
	"github.com/agentstation/matchrules/internal/cmd/completion"
	"github.com/agentstation/matchrules/internal/cmd/output"
	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/rules"
)

// NewCommand creates the rules command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		GroupID: "rules",
		Short:   "Generate, apply and review rules",
		Long: `Rules are suggested from the matches of a match set, evaluated by the
rule application service and reviewed one by one. Rules marked Deleted are
removed by the next 'rules apply'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newGenerateCommand(app))
	cmd.AddCommand(newApplyCommand(app))
	cmd.AddCommand(newAddCommand(app))
	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newShowCommand(app))
	cmd.AddCommand(newStatusCommand(app))

	return cmd
}

// runOperation runs a generate, apply or add call and saves the session when
// the call changed it, failed calls included.
func runOperation(cmd *cobra.Command, app application.Application, fn func(context.Context, *matchrules.Session) (matchrules.ApplyReport, error)) error {
	ctx := cmd.Context()
	if timeout := cmdutil.MustGetDuration(cmd, "timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s, err := app.Session(ctx)
	if err != nil {
		return err
	}
	before := s.Version()
	report, opErr := fn(ctx, s)
	if s.Version() != before {
		if err := app.SaveSession(cmd.Context(), s); err != nil {
			return err
		}
	}
	if opErr != nil {
		return opErr
	}
	return cmdutil.Print(cmd, app, output.Report(report))
}

func addTimeoutFlag(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 0, "Abort the service calls after this duration (0 for none)")
}

func newGenerateCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Suggest rules from a match set and apply them",
		Example: `  matchrules rules generate
  matchrules rules generate --set curated --timeout 2m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set := cmdutil.MustGetString(cmd, "set")
			return runOperation(cmd, app, func(ctx context.Context, s *matchrules.Session) (matchrules.ApplyReport, error) {
				return s.GenerateRules(ctx, set)
			})
		},
	}
	cmd.Flags().String("set", constants.DefaultMatchSet, "Match set the rules are suggested from")
	_ = cmd.RegisterFlagCompletionFunc("set", completion.MatchSets(app, -1))
	addTimeoutFlag(cmd)
	return cmd
}

func newApplyCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Remove deleted rules and re-evaluate the rest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOperation(cmd, app, func(ctx context.Context, s *matchrules.Session) (matchrules.ApplyReport, error) {
				return s.ApplyChanges(ctx)
			})
		},
	}
	addTimeoutFlag(cmd)
	return cmd
}

func newAddCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [rule-json]...",
		Short: "Add rules and apply them",
		Long: `Add inserts rules given inline as JSON objects or read from a file.
Rules already present are skipped; previously deleted rules are only
re-added with --hard.`,
		Example: `  matchrules rules add '{"priority": 1, "source": "name", "target": "name"}'
  matchrules rules add --file rules.yaml --hard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := cmdutil.ParseRules(args)
			if err != nil {
				return err
			}
			if path := cmdutil.MustGetString(cmd, "file"); path != "" {
				fromFile, err := cmdutil.ReadRules(path)
				if err != nil {
					return err
				}
				rs = append(rs, fromFile...)
			}
			if len(rs) == 0 {
				return errors.NewValidationError("rules", nil, "no rules given")
			}
			hard := cmdutil.MustGetBool(cmd, "hard")
			return runOperation(cmd, app, func(ctx context.Context, s *matchrules.Session) (matchrules.ApplyReport, error) {
				return s.AddRules(ctx, rs, hard)
			})
		},
	}
	cmd.Flags().String("file", "", "File with a list of rules (JSON or YAML)")
	cmd.Flags().Bool("hard", false, "Re-add rules that were deleted before")
	_ = cmd.RegisterFlagCompletionFunc("file", completion.DataFiles)
	addTimeoutFlag(cmd)
	return cmd
}

func newListCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List rules with their status and results",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}
			views := s.Rules()
			if status := cmdutil.MustGetString(cmd, "status"); status != "" {
				want, err := rules.ParseStatus(status)
				if err != nil {
					return err
				}
				filtered := views[:0]
				for _, v := range views {
					if v.Status == want {
						filtered = append(filtered, v)
					}
				}
				views = filtered
			}
			return cmdutil.Print(cmd, app, output.Rules(views))
		},
	}
	cmd.Flags().String("status", "", "Only rules with this status (Unhandled, Confirmed, Deleted)")
	_ = cmd.RegisterFlagCompletionFunc("status", completion.Statuses)
	return cmd
}

func newShowCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "show <index>",
		Short: "Show one rule and its matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}
			view, err := s.Rule(index)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app, output.Rule(view))
		},
	}
}

func newStatusCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "status <index> <Unhandled|Confirmed|Deleted>",
		Short: "Set the review status of a rule",
		Long: `Status records the review decision for a rule. Marking a rule Deleted
schedules its removal; run 'matchrules rules apply' to remove it.`,
		Example: `  matchrules rules status 0 Confirmed
  matchrules rules status 3 Deleted`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 1 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completion.Statuses(cmd, args, toComplete)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			status, err := rules.ParseStatus(args[1])
			if err != nil {
				return err
			}
			s, err := app.Session(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.SetRuleStatus(index, status); err != nil {
				return err
			}
			if err := app.SaveSession(cmd.Context(), s); err != nil {
				return err
			}
			view, err := s.Rule(index)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app, output.Rule(view))
		},
	}
}

func parseIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 {
		return 0, errors.NewValidationError("index", arg, "rule index must be a non-negative integer")
	}
	return index, nil
}
