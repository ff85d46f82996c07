package constants

const (
	AppName            = "stride"
	DefaultKeyringUser = "database-connection"
	DefaultDBPath      = "~/.config/stride/stride.db"
	DefaultPolicyPath  = "~/.config/stride/policy.yaml"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimestampFormat is the fixed-width UTC layout used for stored timestamps so that
	// lexical ordering in the database matches chronological ordering.
	TimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

	// KeyringDBSentinel selects the connection string stored in the OS keyring.
	KeyringDBSentinel = "keyring"

	// Serve defaults
	DefaultServeAddr     = ":9464"
	DefaultServeSchedule = "@every 5m"
)
