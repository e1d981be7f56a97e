package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the matchrules CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "matchrules",
		Short:   "Rule based entity matching",
		Version: a.version,
		Long: `matchrules links source entities to target entities through rules.

Curated example matches are sent to a rule suggestion service, the suggested
rules are evaluated by a rule application service, and the resulting match
output can be reviewed rule by rule and compared against any match set.

Every command works on a session state file (--state), which is created by
'matchrules init' and saved back after each change.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "session",
		Title: "Session Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "rules",
		Title: "Rule Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "server",
		Title: "Server Commands:",
	})

	// Defaults come from the loaded configuration so flags only override it
	// when given.
	flags := rootCmd.PersistentFlags()
	flags.String("config", a.config.ConfigFile, "config file (default is $HOME/.matchrules.yaml)")
	flags.StringP("state", "s", a.config.State, "session state file (.json or .yaml)")
	flags.String("service-url", a.config.ServiceURL, "base URL of the rule services")
	flags.BoolP("verbose", "v", a.config.Verbose, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", a.config.Quiet, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", a.config.NoColor, "disable colored output")
	flags.StringP("format", "o", a.config.Format, "output format: table, json, yaml, wide")
	flags.String("log-level", a.config.LogLevel, "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("matchrules {{.Version}}\n")
	if a.out != nil {
		rootCmd.SetOut(a.out)
		rootCmd.SetErr(a.out)
	}

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs. It reloads the config
// file when --config is given, applies the flags that were set, validates
// the result and rebuilds the logger.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	if flags.Changed("config") {
		config, err := LoadConfig(mustGetString(cmd, "config"))
		if err != nil {
			return err
		}
		a.config = config
	}

	if flags.Changed("state") {
		a.config.State = mustGetString(cmd, "state")
	}
	if flags.Changed("service-url") {
		a.config.ServiceURL = mustGetString(cmd, "service-url")
	}
	if flags.Changed("verbose") {
		a.config.Verbose = mustGetBool(cmd, "verbose")
	}
	if flags.Changed("quiet") {
		a.config.Quiet = mustGetBool(cmd, "quiet")
	}
	if flags.Changed("no-color") {
		a.config.NoColor = mustGetBool(cmd, "no-color")
	}
	if flags.Changed("format") {
		a.config.Format = mustGetString(cmd, "format")
	}
	if flags.Changed("log-level") {
		a.config.LogLevel = mustGetString(cmd, "log-level")
	}

	if err := a.config.Validate(); err != nil {
		return err
	}

	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
