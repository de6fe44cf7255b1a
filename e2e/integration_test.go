//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
//
// By default the tests use the shared AWS config. Set GRID_E2E_CONFIG to a
// datastore YAML file to run against another endpoint such as DynamoDB Local.
package e2e

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/grid/datastore"
	"github.com/jacentio/grid/dialect/dialecttest"
	"github.com/jacentio/grid/dialect/dynamo"
	"github.com/jacentio/grid/grid"
)

// Table names are unique per test run to avoid conflicts.
const tablePrefix = "grid-e2e"

var (
	testID    string
	ddbClient *dynamodb.Client
)

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	fmt.Printf("Test ID: %s\n", testID)

	ctx := context.Background()
	client, closeFn, err := newClient(ctx)
	if err != nil {
		fmt.Printf("Failed to create DynamoDB client: %v\n", err)
		os.Exit(1)
	}
	ddbClient = client

	code := m.Run()

	if err := deleteTables(ctx); err != nil {
		fmt.Printf("Failed to delete tables: %v\n", err)
	}
	closeFn()

	os.Exit(code)
}

// newClient builds the client from GRID_E2E_CONFIG when set, else from the
// shared AWS config.
func newClient(ctx context.Context) (*dynamodb.Client, func(), error) {
	if path := os.Getenv("GRID_E2E_CONFIG"); path != "" {
		cfg, err := datastore.LoadConfig(path)
		if err != nil {
			return nil, nil, err
		}
		conn, err := datastore.Open(ctx, cfg, nil)
		if err != nil {
			return nil, nil, err
		}
		client, err := conn.Client()
		if err != nil {
			return nil, nil, err
		}
		return client, func() { conn.Close() }, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), func() {}, nil
}

// newDialect returns a dialect whose tables live under a fresh prefix.
func newDialect(t *testing.T) *dynamo.Dialect {
	t.Helper()
	cfg := dynamo.DefaultConfig()
	cfg.TablePrefix = fmt.Sprintf("%s-%s-%s.", tablePrefix, testID, uuid.New().String()[:4])
	return dynamo.New(ddbClient, cfg, nil)
}

// deleteTables drops every table created by this run.
func deleteTables(ctx context.Context) error {
	fmt.Println("Deleting test tables...")

	runPrefix := fmt.Sprintf("%s-%s-", tablePrefix, testID)
	paginator := dynamodb.NewListTablesPaginator(ddbClient, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		for _, name := range page.TableNames {
			if !strings.HasPrefix(name, runPrefix) {
				continue
			}
			_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
				TableName: aws.String(name),
			})
			if err != nil {
				fmt.Printf("Warning: failed to delete table %s: %v\n", name, err)
			}
		}
	}
	return nil
}

func TestConformance(t *testing.T) {
	dialecttest.Run(t, func(t *testing.T) grid.Dialect {
		return newDialect(t)
	})
}

func TestOptimisticLock(t *testing.T) {
	ctx := context.Background()
	d := newDialect(t)
	key := grid.NewEntityKey("Account", uuid.New().String())
	lockable := grid.Lockable{EntityName: "Account", RootTable: "Account", VersionColumn: "version"}

	tuple, err := d.CreateTuple(ctx, key)
	require.NoError(t, err)
	tuple.Put("version", 1)
	require.NoError(t, d.UpdateTuple(ctx, tuple, key))

	bump, err := d.GetLockingStrategy(lockable, grid.LockOptimisticForceIncrement)
	require.NoError(t, err)
	require.NoError(t, bump.Lock(ctx, key.ID(), 1))
	assert.ErrorIs(t, bump.Lock(ctx, key.ID(), 1), grid.ErrOptimisticLock)

	check, err := d.GetLockingStrategy(lockable, grid.LockOptimistic)
	require.NoError(t, err)
	assert.NoError(t, check.Lock(ctx, key.ID(), 2))
}

func TestLargeAssociation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	d := newDialect(t)
	key := grid.NewAssociationKey("Account_Orders", []string{"owner_id"}, []any{1})

	// More rows than one TransactWriteItems call accepts.
	assoc, err := d.CreateAssociation(ctx, key)
	require.NoError(t, err)
	for i := 0; i < 250; i++ {
		assoc.PutNull(grid.NewRowKey("Account_Orders", []string{"owner_id", "order_id"}, []any{1, i}))
	}
	require.NoError(t, d.UpdateAssociation(ctx, assoc, key))

	loaded, err := d.GetAssociation(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 250, loaded.Size())

	require.NoError(t, d.RemoveAssociation(ctx, key))
	loaded, err = d.GetAssociation(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
