package sqlite

import "time"

// Config holds configuration for the Dialect.
type Config struct {
	// Path is the database file. It is created if it does not exist.
	Path string

	// BusyTimeout is how long a statement waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration

	// Synchronous is the PRAGMA synchronous level.
	// Default: "NORMAL"
	Synchronous string
}

// DefaultConfig returns sensible defaults for a database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		Synchronous: "NORMAL",
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
	switch c.Synchronous {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		c.Synchronous = "NORMAL"
	}
}
