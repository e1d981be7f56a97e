// Package emoji provides symbol constants for CLI output.
package emoji

// Symbol constants for status lines printed by long running commands.
const (
	// Success marks a completed step, such as a server that started or stopped cleanly.
	Success = "✓"

	// Stop marks a shutdown in progress.
	Stop = "✗"
)
