package keepass

import "errors"

var (
	// ErrNotAvailable indicates keepassxc-cli is missing or broken.
	ErrNotAvailable = errors.New("keepassxc-cli not available")
	// ErrAuthenticationFailed indicates the database rejected the credentials.
	ErrAuthenticationFailed = errors.New("invalid password or authentication failed")
	// ErrDatabaseNotFound indicates the database file does not exist.
	ErrDatabaseNotFound = errors.New("database file not found")
	// ErrEntryNotFound indicates the entry does not exist in the database.
	ErrEntryNotFound = errors.New("entry not found in database")
	// ErrDatabaseLocked indicates another process holds the database lock.
	ErrDatabaseLocked = errors.New("database is locked by another process")
	// ErrTimeout indicates the command exceeded its wall-clock budget and
	// was forcibly terminated.
	ErrTimeout = errors.New("keepassxc-cli command timed out")
	// ErrParse indicates the CLI output could not be interpreted.
	ErrParse = errors.New("failed to parse keepassxc-cli output")
	// ErrCommand is the generic command failure.
	ErrCommand = errors.New("keepassxc-cli command failed")
)
