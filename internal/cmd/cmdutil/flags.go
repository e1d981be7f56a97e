// Package cmdutil provides shared flag, input and output helpers for
// matchrules commands.
package cmdutil

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// MustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined by the calling command.
func MustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// MustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
func MustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// MustGetInt retrieves an integer flag value or panics if the flag doesn't exist.
func MustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// MustGetStringSlice retrieves a string slice flag value or panics if the flag doesn't exist.
func MustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// MustGetDuration retrieves a duration flag value or panics if the flag doesn't exist.
func MustGetDuration(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// AddLabelFlags adds the flags choosing the entity fields shown next to ids.
func AddLabelFlags(cmd *cobra.Command) {
	cmd.Flags().String("source-label", "", "Source field shown next to source ids")
	cmd.Flags().String("target-label", "", "Target field shown next to target ids")
}
