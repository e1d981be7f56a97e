// Package completion provides dynamic shell completion for command arguments
// and flags.
package completion

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/matchrules/internal/cmd/application"
	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/rules"
)

// MatchSets completes the match set names of the session in the state file.
// At most maxArgs positional arguments are completed; a negative maxArgs
// means no limit.
func MatchSets(app application.Application, maxArgs int) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if maxArgs >= 0 && len(args) >= maxArgs {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		s, err := app.Session(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return filter(s.MatchSetNames(), toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

// ComparisonKeys completes match set names and the rule output key.
func ComparisonKeys(app application.Application) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	sets := MatchSets(app, 2)
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		names, directive := sets(cmd, args, toComplete)
		if directive == cobra.ShellCompDirectiveError || len(args) >= 2 {
			return names, directive
		}
		if strings.HasPrefix(constants.RuleOutputMatchSet, toComplete) {
			names = append(names, constants.RuleOutputMatchSet)
		}
		return names, directive
	}
}

// Statuses completes rule status names.
func Statuses(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, len(rules.Statuses))
	for i, s := range rules.Statuses {
		names[i] = string(s)
	}
	return filter(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// Values completes a fixed list of values.
func Values(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return filter(values, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

// DataFiles restricts file completion to JSON and YAML files.
func DataFiles(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"json", "yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}

func filter(values []string, prefix string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}
