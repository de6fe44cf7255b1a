package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/grid/grid"
)

// Association rows are items of the association's table. Each row item holds
// the row's value columns overlaid with the row key and association key
// columns, plus _rk naming the row key columns. Its _id combines the
// association and row key references.

// GetAssociation scans the association's table and projects every item whose
// association key columns match into a row. There is no secondary index; the
// scan is O(table size).
func (d *Dialect) GetAssociation(ctx context.Context, key grid.AssociationKey) (*grid.Association, error) {
	rows, err := d.scanRows(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get association %s: %w", key, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	snapshot := grid.NewAssociationSnapshot()
	for _, stored := range rows {
		snapshot.Put(stored.row.Key, stored.row.Columns)
	}
	return grid.NewAssociation(snapshot), nil
}

// CreateAssociation creates the table if needed and returns an empty association.
func (d *Dialect) CreateAssociation(ctx context.Context, key grid.AssociationKey) (*grid.Association, error) {
	if err := d.ensureTable(ctx, key.Table()); err != nil {
		return nil, fmt.Errorf("create association %s: %w", key, err)
	}
	return grid.NewAssociation(nil), nil
}

// UpdateAssociation replays the log against the stored rows. A clear deletes
// every item the association projects plus every row put earlier in the
// log; operations after it still apply. The resulting puts and deletes are
// written with TransactWriteItems, at most MaxTransactItems per call. Each
// call is atomic on its own: when a later call fails the earlier ones stay
// committed and the error wraps ErrPartialWrite.
func (d *Dialect) UpdateAssociation(ctx context.Context, association *grid.Association, key grid.AssociationKey) error {
	pending := make(map[string]types.TransactWriteItem)
	table := aws.String(d.TableName(key.Table()))

	// stored maps the normalized row key ref of every projected item to its
	// _id. It is loaded on the first clear or remove.
	var stored map[string]string
	load := func() error {
		if stored != nil {
			return nil
		}
		rows, err := d.scanRows(ctx, key)
		if err != nil {
			return err
		}
		stored = make(map[string]string, len(rows))
		for _, r := range rows {
			stored[r.row.Key.Ref()] = r.id
		}
		return nil
	}

	for _, op := range association.Operations() {
		switch op.Type {
		case grid.AssocClear:
			if err := load(); err != nil {
				return fmt.Errorf("update association %s: %w", key, err)
			}
			for id := range pending {
				pending[id] = deleteRow(table, id)
			}
			for _, id := range stored {
				pending[id] = deleteRow(table, id)
			}
		case grid.AssocPutNull, grid.AssocPut:
			columns := map[string]any{}
			if op.Type == grid.AssocPut {
				columns = op.Value.Map()
			}
			item, err := rowItem(key, op.Key, columns)
			if err != nil {
				return fmt.Errorf("update association %s: %w", key, err)
			}
			pending[rowID(key, op.Key)] = types.TransactWriteItem{
				Put: &types.Put{TableName: table, Item: item},
			}
		case grid.AssocRemove:
			if err := load(); err != nil {
				return fmt.Errorf("update association %s: %w", key, err)
			}
			id := rowID(key, op.Key)
			pending[id] = deleteRow(table, id)
			// Items written by other means carry their own _id.
			if other, ok := stored[normalizedRef(key, op.Key)]; ok && other != id {
				pending[other] = deleteRow(table, other)
			}
		}
	}

	if len(pending) == 0 {
		return nil
	}
	if err := d.ensureTable(ctx, key.Table()); err != nil {
		return fmt.Errorf("update association %s: %w", key, err)
	}

	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	items := make([]types.TransactWriteItem, len(ids))
	for i, id := range ids {
		items[i] = pending[id]
	}

	if err := d.transactWrite(ctx, items); err != nil {
		return fmt.Errorf("update association %s: %w", key, err)
	}
	d.logger.Debug("association updated", "key", key.String(), "writes", len(items))
	return nil
}

// RemoveAssociation deletes every row item stored for the association.
func (d *Dialect) RemoveAssociation(ctx context.Context, key grid.AssociationKey) error {
	rows, err := d.scanRows(ctx, key)
	if err != nil {
		return fmt.Errorf("remove association %s: %w", key, err)
	}

	table := aws.String(d.TableName(key.Table()))
	items := make([]types.TransactWriteItem, len(rows))
	for i, row := range rows {
		items[i] = deleteRow(table, row.id)
	}
	if err := d.transactWrite(ctx, items); err != nil {
		return fmt.Errorf("remove association %s: %w", key, err)
	}
	return nil
}

// storedRow is a row projected from an item, with the item's _id.
type storedRow struct {
	id  string
	row grid.Row
}

// scanRows returns the rows stored for an association. A missing table
// yields no rows.
func (d *Dialect) scanRows(ctx context.Context, key grid.AssociationKey) ([]storedRow, error) {
	filter, exprNames, exprValues, err := equalityFilter(key.ColumnNames(), key.ColumnValues())
	if err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{
		TableName:      aws.String(d.TableName(key.Table())),
		ConsistentRead: aws.Bool(true),
	}
	if filter != "" {
		input.FilterExpression = aws.String(filter)
		input.ExpressionAttributeNames = exprNames
		input.ExpressionAttributeValues = exprValues
	}

	var rows []storedRow
	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if isNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			row, err := projectRow(key, item)
			if err != nil {
				return nil, err
			}
			id, _ := item[attrID].(*types.AttributeValueMemberS)
			if id == nil {
				return nil, fmt.Errorf("item without %s in %s", attrID, aws.ToString(input.TableName))
			}
			rows = append(rows, storedRow{id: id.Value, row: row})
		}
	}
	return rows, nil
}

// projectRow derives a row from a stored item: its row key is built from the
// item's own columns.
func projectRow(key grid.AssociationKey, item map[string]types.AttributeValue) (grid.Row, error) {
	columns, err := decodeItem(item)
	if err != nil {
		return grid.Row{}, err
	}
	names := rowKeyNames(item, columns)
	values := make([]any, len(names))
	for i, name := range names {
		values[i] = columns[name]
	}
	return grid.Row{
		Key:     grid.NewRowKey(key.Table(), names, values),
		Columns: columns,
	}, nil
}

// rowItem builds the stored item for one row.
func rowItem(key grid.AssociationKey, rowKey grid.RowKey, columns map[string]any) (map[string]types.AttributeValue, error) {
	merged := make(map[string]any, len(columns))
	for k, v := range columns {
		merged[k] = v
	}
	names := rowKey.ColumnNames()
	for i, v := range rowKey.ColumnValues() {
		merged[names[i]] = v
	}
	assocNames := key.ColumnNames()
	for i, v := range key.ColumnValues() {
		merged[assocNames[i]] = v
	}

	item, err := encodeItem(rowID(key, rowKey), merged)
	if err != nil {
		return nil, err
	}
	rk := make([]types.AttributeValue, len(names))
	for i, name := range names {
		rk[i] = &types.AttributeValueMemberS{Value: name}
	}
	item[attrRowKey] = &types.AttributeValueMemberL{Value: rk}
	return item, nil
}

// rowID is the _id of a row item. Row keys are rebuilt against the
// association's table on load, so only the row's columns take part.
func rowID(key grid.AssociationKey, rowKey grid.RowKey) string {
	return key.Ref() + "#" + normalizedRef(key, rowKey)
}

// normalizedRef is the ref of rowKey rebuilt against the association's table.
func normalizedRef(key grid.AssociationKey, rowKey grid.RowKey) string {
	return grid.NewRowKey(key.Table(), rowKey.ColumnNames(), rowKey.ColumnValues()).Ref()
}

func deleteRow(table *string, id string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{TableName: table, Key: itemKey(id)},
	}
}

// transactWrite issues items in chunks of MaxTransactItems. Each chunk is
// atomic; a failure stops at the failing chunk. A failure after the first
// chunk wraps ErrPartialWrite.
func (d *Dialect) transactWrite(ctx context.Context, items []types.TransactWriteItem) error {
	size := d.config.MaxTransactItems
	chunks := (len(items) + size - 1) / size
	for i := 0; i < chunks; i++ {
		start := i * size
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items[start:end],
		})
		if err == nil {
			continue
		}
		if i == 0 {
			return err
		}
		return fmt.Errorf("%w: transaction %d of %d failed after %d writes: %w",
			ErrPartialWrite, i+1, chunks, start, err)
	}
	return nil
}
