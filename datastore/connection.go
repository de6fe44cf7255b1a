package datastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/grid/dialect/dynamo"
)

var (
	// ErrNotOpen is returned when the connection has no live client.
	ErrNotOpen = errors.New("datastore: connection not open")

	// ErrClosed is returned when opening a connection that was closed.
	ErrClosed = errors.New("datastore: connection closed")
)

// State is the lifecycle state of a Connection.
type State int

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Connection owns the DynamoDB client for one Config. The client exists only
// in StateOpen.
type Connection struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	client *dynamodb.Client
}

// NewConnection returns an unopened connection. A nil logger means
// slog.Default().
func NewConnection(cfg Config, logger *slog.Logger) *Connection {
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{config: cfg, logger: logger}
}

// Open validates the config and opens a connection in one step.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Connection, error) {
	c := NewConnection(cfg, logger)
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Config returns the connection's configuration.
func (c *Connection) Config() Config { return c.config }

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open builds the DynamoDB client. An invalid config leaves the connection
// unopened. Opening an open connection is a no-op.
func (c *Connection) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateOpen:
		return nil
	case StateClosed:
		return ErrClosed
	}

	if err := c.config.Validate(); err != nil {
		return err
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.config.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.config.User, c.config.Password, ""),
		),
	)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	endpoint := c.config.Endpoint()
	c.client = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	c.state = StateOpen

	c.logger.Info("datastore opened",
		"endpoint", endpoint,
		"database", c.config.Database,
		"region", c.config.Region,
	)
	return nil
}

// Close releases the client. It is safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateOpen {
		c.logger.Info("datastore closed", "database", c.config.Database)
	}
	c.client = nil
	c.state = StateClosed
	return nil
}

// Client returns the live client, or ErrNotOpen.
func (c *Connection) Client() (*dynamodb.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return nil, ErrNotOpen
	}
	return c.client, nil
}

// Collection returns the backend table name for a grid table.
func (c *Connection) Collection(table string) string {
	return c.tablePrefix() + table
}

// Dialect returns a dynamo.Dialect on this connection. The dialect's table
// prefix is replaced by the database namespace.
func (c *Connection) Dialect(cfg dynamo.Config) (*dynamo.Dialect, error) {
	client, err := c.Client()
	if err != nil {
		return nil, err
	}
	cfg.TablePrefix = c.tablePrefix()
	return dynamo.New(client, cfg, c.logger), nil
}

func (c *Connection) tablePrefix() string {
	return c.config.Database + "."
}
