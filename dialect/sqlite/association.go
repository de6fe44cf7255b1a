package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jacentio/grid/grid"
)

func (d *Dialect) GetAssociation(ctx context.Context, key grid.AssociationKey) (*grid.Association, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT row_key, doc FROM grid_rows WHERE assoc_ref = ? ORDER BY row_ref`,
		key.Ref(),
	)
	if err != nil {
		return nil, fmt.Errorf("get association %s: %w", key, err)
	}
	defer rows.Close()

	snapshot := grid.NewAssociationSnapshot()
	for rows.Next() {
		var rawKey, doc string
		if err := rows.Scan(&rawKey, &doc); err != nil {
			return nil, fmt.Errorf("get association %s: %w", key, err)
		}
		rowKey, err := unmarshalRowKey(key.Table(), rawKey)
		if err != nil {
			return nil, fmt.Errorf("get association %s: %w", key, err)
		}
		columns, err := unmarshalDoc(doc)
		if err != nil {
			return nil, fmt.Errorf("get association %s: %w", key, err)
		}
		snapshot.Put(rowKey, columns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get association %s: %w", key, err)
	}

	if snapshot.Size() == 0 {
		return nil, nil
	}
	return grid.NewAssociation(snapshot), nil
}

func (d *Dialect) CreateAssociation(_ context.Context, _ grid.AssociationKey) (*grid.Association, error) {
	return grid.NewAssociation(nil), nil
}

// UpdateAssociation applies the log in one transaction, one statement per
// operation.
func (d *Dialect) UpdateAssociation(ctx context.Context, association *grid.Association, key grid.AssociationKey) error {
	ops := association.Operations()
	if len(ops) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update association %s: %w", key, err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		if err := applyOperation(ctx, tx, key, op); err != nil {
			return fmt.Errorf("update association %s: %s: %w", key, op.Type, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update association %s: %w", key, err)
	}
	return nil
}

func applyOperation(ctx context.Context, tx *sql.Tx, key grid.AssociationKey, op grid.AssociationOperation) error {
	if op.Type == grid.AssocClear {
		_, err := tx.ExecContext(ctx, `DELETE FROM grid_rows WHERE assoc_ref = ?`, key.Ref())
		return err
	}

	// Row keys are stored against the association's table.
	rowKey := grid.NewRowKey(key.Table(), op.Key.ColumnNames(), op.Key.ColumnValues())

	if op.Type == grid.AssocRemove {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM grid_rows WHERE assoc_ref = ? AND row_ref = ?`,
			key.Ref(), rowKey.Ref(),
		)
		return err
	}

	columns := map[string]any{}
	if op.Type == grid.AssocPut {
		columns = op.Value.Map()
	}
	doc, err := marshalDoc(columns)
	if err != nil {
		return err
	}
	rawKey, err := marshalRowKey(rowKey)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO grid_rows (tbl, assoc_ref, row_ref, row_key, doc) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(assoc_ref, row_ref) DO UPDATE SET row_key = excluded.row_key, doc = excluded.doc
	`, key.Table(), key.Ref(), rowKey.Ref(), rawKey, doc)
	return err
}

// RemoveAssociation deletes every stored row of the association.
func (d *Dialect) RemoveAssociation(ctx context.Context, key grid.AssociationKey) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM grid_rows WHERE assoc_ref = ?`, key.Ref())
	if err != nil {
		return fmt.Errorf("remove association %s: %w", key, err)
	}
	return nil
}
