// Package constants provides shared constants used throughout the matchrules codebase.
// This includes timeouts, file permissions, well-known field names and other
// values that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for calls to the rule services
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// ShutdownTimeout bounds graceful server shutdown
	ShutdownTimeout = 30 * time.Second

	// DialTimeout is the timeout for establishing network connections
	DialTimeout = 10 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like API keys (rw-------)
	SecureFilePermissions = 0600
)

// Well-known entity field names
const (
	// IDField is the default name of the identifier field of an entity
	IDField = "id"

	// MetadataField is the nested object whose keys are lifted during flattening
	MetadataField = "metadata"

	// MetadataPrefix is prepended to lifted metadata keys
	MetadataPrefix = "metadata."

	// ReferenceIDField is the source field used when deriving reference matches
	ReferenceIDField = "asset_id"
)

// Match set names
const (
	// DefaultMatchSet is the user-curated match set created with every session
	DefaultMatchSet = "default"

	// RuleOutputMatchSet is the comparison label for the engine's own rule output
	RuleOutputMatchSet = "rule_output"
)

// Limit constants define various limits and capacities
const (
	// ChannelBufferSize is the default buffer size for channels
	ChannelBufferSize = 100

	// MaxRequestBodyBytes bounds the size of an HTTP request body
	MaxRequestBodyBytes = 32 << 20
)

// Cache constants
const (
	// CacheTTL is the default time-to-live for cached data
	CacheTTL = 15 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 5 * time.Minute
)

// Path constants
const (
	// DefaultStateDir is the default directory for persisted sessions
	DefaultStateDir = "~/.matchrules/sessions"

	// DefaultConfigPath is the default path for configuration files
	DefaultConfigPath = "~/.matchrules.yaml"
)

// Format constants
const (
	// TimeFormatISO8601 is the ISO 8601 time format
	TimeFormatISO8601 = time.RFC3339

	// TimeFormatLog is the format used in log files
	TimeFormatLog = "2006-01-02 15:04:05.000"
)
