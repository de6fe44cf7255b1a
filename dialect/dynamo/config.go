package dynamo

import "time"

// Config holds configuration for the Dialect.
type Config struct {
	// TablePrefix is prepended to every grid table name to form the
	// DynamoDB table name, e.g. "shop." turns "Account" into "shop.Account".
	// Default: "" (no prefix)
	TablePrefix string

	// TableWait bounds how long lazy table creation and table drops wait
	// for DynamoDB to reach the target state.
	// Default: 2m
	TableWait time.Duration

	// MaxTransactItems is the number of writes grouped into one
	// TransactWriteItems call when persisting association rows.
	// Default: 100
	// Max: 100 (DynamoDB limit)
	MaxTransactItems int

	// SequenceAttribute is the attribute holding sequence values.
	// Default: "next_val"
	SequenceAttribute string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TableWait:         2 * time.Minute,
		MaxTransactItems:  100,
		SequenceAttribute: "next_val",
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.TableWait <= 0 {
		c.TableWait = 2 * time.Minute
	}
	if c.MaxTransactItems < 1 || c.MaxTransactItems > 100 {
		c.MaxTransactItems = 100
	}
	if c.SequenceAttribute == "" {
		c.SequenceAttribute = "next_val"
	}
}
