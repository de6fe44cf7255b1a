package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/grid/dialect/dynamo"
)

func testConfig() Config {
	return Config{
		Database: "shop",
		Host:     "localhost",
		Port:     8000,
		User:     "local",
		Password: "secret",
	}
}

func TestConnection_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewConnection(testConfig(), nil)
	assert.Equal(t, StateUnopened, c.State())

	_, err := c.Client()
	assert.ErrorIs(t, err, ErrNotOpen)

	require.NoError(t, c.Open(ctx))
	assert.Equal(t, StateOpen, c.State())
	client, err := c.Client()
	require.NoError(t, err)
	assert.NotNil(t, client)

	// Opening twice keeps the same client.
	require.NoError(t, c.Open(ctx))
	again, err := c.Client()
	require.NoError(t, err)
	assert.Same(t, client, again)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())
	_, err = c.Client()
	assert.ErrorIs(t, err, ErrNotOpen)

	assert.ErrorIs(t, c.Open(ctx), ErrClosed)
}

func TestConnection_InvalidConfigStaysUnopened(t *testing.T) {
	cfg := testConfig()
	cfg.Password = ""
	c := NewConnection(cfg, nil)

	err := c.Open(context.Background())
	assert.ErrorIs(t, err, ErrIncompleteConfig)
	assert.Equal(t, StateUnopened, c.State())

	_, err = Open(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ErrIncompleteConfig)
}

func TestConnection_CloseUnopened(t *testing.T) {
	c := NewConnection(testConfig(), nil)
	require.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())
}

func TestConnection_DefaultRegion(t *testing.T) {
	c := NewConnection(testConfig(), nil)
	assert.Equal(t, DefaultRegion, c.Config().Region)
}

func TestConnection_Collection(t *testing.T) {
	c := NewConnection(testConfig(), nil)
	assert.Equal(t, "shop.Account", c.Collection("Account"))
}

func TestConnection_Dialect(t *testing.T) {
	c := NewConnection(testConfig(), nil)

	_, err := c.Dialect(dynamo.DefaultConfig())
	assert.ErrorIs(t, err, ErrNotOpen)

	require.NoError(t, c.Open(context.Background()))
	defer c.Close()

	cfg := dynamo.DefaultConfig()
	cfg.TablePrefix = "ignored."
	d, err := c.Dialect(cfg)
	require.NoError(t, err)
	assert.Equal(t, c.Collection("Account"), d.TableName("Account"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unopened", StateUnopened.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
