package log

// Version information for the log module.
const (
	// Version is the current version of the log module. 1.1.0 added
	// ParseLevel, NewConsoleAdapter and the Uint32 field.
	Version = "1.1.0"

	// MinCompatibleVersion is the oldest version callers may rely on.
	MinCompatibleVersion = "1.0.0"
)
