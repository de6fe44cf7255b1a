package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/grid/grid"
)

// Dialect implements grid.Dialect on DynamoDB.
type Dialect struct {
	client Client
	config Config
	logger *slog.Logger

	// ready caches DynamoDB table names known to be ACTIVE.
	ready sync.Map
}

var _ grid.Dialect = (*Dialect)(nil)

// New creates a new Dialect. A nil logger means slog.Default().
func New(client Client, config Config, logger *slog.Logger) *Dialect {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialect{
		client: client,
		config: config,
		logger: logger,
	}
}

// TableName returns the DynamoDB table backing a grid table.
func (d *Dialect) TableName(table string) string {
	return d.config.TablePrefix + table
}

// GetTuple reads one entity with a strongly consistent read.
func (d *Dialect) GetTuple(ctx context.Context, key grid.EntityKey) (*grid.Tuple, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.TableName(key.Table())),
		Key:            itemKey(key.IDRef()),
		ConsistentRead: aws.Bool(true),
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tuple %s: %w", key, err)
	}
	if result.Item == nil {
		return nil, nil
	}

	columns, err := decodeItem(result.Item)
	if err != nil {
		return nil, fmt.Errorf("get tuple %s: %w", key, err)
	}
	return grid.NewTuple(grid.NewMapSnapshot(columns)), nil
}

// CreateTuple creates the table if needed. Nothing is written until UpdateTuple.
func (d *Dialect) CreateTuple(ctx context.Context, key grid.EntityKey) (*grid.Tuple, error) {
	if err := d.ensureTable(ctx, key.Table()); err != nil {
		return nil, fmt.Errorf("create tuple %s: %w", key, err)
	}

	initial := map[string]any{}
	if key.HasID() {
		initial[grid.IDColumn] = key.ID()
	}
	return grid.NewTuple(grid.NewMapSnapshot(initial)), nil
}

// UpdateTuple replaces the stored item with the tuple's merged columns.
func (d *Dialect) UpdateTuple(ctx context.Context, tuple *grid.Tuple, key grid.EntityKey) error {
	item, err := encodeItem(key.IDRef(), tuple.Map())
	if err != nil {
		return fmt.Errorf("update tuple %s: %w", key, err)
	}
	if err := d.ensureTable(ctx, key.Table()); err != nil {
		return fmt.Errorf("update tuple %s: %w", key, err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.TableName(key.Table())),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("update tuple %s: %w", key, err)
	}

	d.logger.Debug("tuple updated", "key", key.String(), "columns", len(item)-1)
	return nil
}

// RemoveTuple deletes one item, or drops the table when the key has no id.
func (d *Dialect) RemoveTuple(ctx context.Context, key grid.EntityKey) error {
	if !key.HasID() {
		if err := d.dropTable(ctx, key.Table()); err != nil {
			return fmt.Errorf("remove tuple %s: %w", key, err)
		}
		return nil
	}

	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.TableName(key.Table())),
		Key:       itemKey(key.IDRef()),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("remove tuple %s: %w", key, err)
	}
	return nil
}

// CreateTupleAssociation returns a tuple over grid.EmptySnapshot.
func (d *Dialect) CreateTupleAssociation(associationKey grid.AssociationKey, rowKey grid.RowKey) *grid.Tuple {
	return grid.NewTupleAssociation(associationKey, rowKey)
}

// ensureTable creates the DynamoDB table for a grid table if it does not
// exist and waits until it is ACTIVE.
func (d *Dialect) ensureTable(ctx context.Context, table string) error {
	name := d.TableName(table)
	if _, ok := d.ready.Load(name); ok {
		return nil
	}

	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("describe table %s: %w", name, err)
		}
		_, err = d.client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(name),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(attrID), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(attrID), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		// Another caller may have created it first.
		var inUse *types.ResourceInUseException
		if err != nil && !errors.As(err, &inUse) {
			return fmt.Errorf("create table %s: %w", name, err)
		}
		d.logger.Info("table created", "table", name)
	}

	waiter := dynamodb.NewTableExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, d.config.TableWait); err != nil {
		return fmt.Errorf("wait for table %s: %w", name, err)
	}

	d.ready.Store(name, struct{}{})
	return nil
}

// dropTable deletes the DynamoDB table for a grid table and waits until it
// is gone, so the name can be reused.
func (d *Dialect) dropTable(ctx context.Context, table string) error {
	name := d.TableName(table)
	d.ready.Delete(name)

	_, err := d.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(name),
	})
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete table %s: %w", name, err)
	}

	waiter := dynamodb.NewTableNotExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, d.config.TableWait); err != nil {
		return fmt.Errorf("wait for table %s deletion: %w", name, err)
	}

	d.logger.Info("table dropped", "table", name)
	return nil
}
