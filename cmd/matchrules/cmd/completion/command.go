// Package completion provides the shell completion command.
package completion

import (
	"io"

	"github.com/spf13/cobra"
)

// NewCommand creates the completion command. It replaces cobra's generated
// one so the scripts are written to the command output.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generate shell completion scripts",
		Long: `Generate the autocompletion script for the given shell.

Match set names, rule statuses and comparison keys are completed from the
state file selected by --state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newShellCommand("bash", `  source <(matchrules completion bash)

To load completions for every new session, execute once:

  # Linux:
  matchrules completion bash > /etc/bash_completion.d/matchrules

  # macOS:
  matchrules completion bash > $(brew --prefix)/etc/bash_completion.d/matchrules`,
		func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) }))

	cmd.AddCommand(newShellCommand("zsh", `  source <(matchrules completion zsh)

To load completions for every new session, execute once:

  matchrules completion zsh > "${fpath[1]}/_matchrules"

You will need to start a new shell for this setup to take effect.`,
		func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) }))

	cmd.AddCommand(newShellCommand("fish", `  matchrules completion fish | source

To load completions for every new session, execute once:

  matchrules completion fish > ~/.config/fish/completions/matchrules.fish`,
		func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) }))

	cmd.AddCommand(newShellCommand("powershell", `  matchrules completion powershell | Out-String | Invoke-Expression

To load completions for every new session, add the output of the above command
to your powershell profile.`,
		func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) }))

	return cmd
}

func newShellCommand(shell, usage string, gen func(root *cobra.Command, w io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   shell,
		Short: "Generate " + shell + " completion script",
		Long: "Generate the autocompletion script for " + shell + `.

To load completions in your current shell session:

` + usage,
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return gen(cmd.Root(), cmd.OutOrStdout())
		},
	}
}
