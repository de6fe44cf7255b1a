package sqlite

import (
	"context"
	"fmt"

	"github.com/jacentio/grid/grid"
)

// NextValue advances a sequence with a single upsert. The stored value is
// the next one to hand out; RETURNING reports it after the increment.
func (d *Dialect) NextValue(ctx context.Context, key grid.RowKey, value *grid.IntegralValue, increment, initialValue int64) error {
	if increment <= 0 {
		return grid.ErrInvalidIncrement
	}

	var next int64
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO grid_sequences (tbl, ref, value) VALUES (?, ?, ?)
		ON CONFLICT(tbl, ref) DO UPDATE SET value = value + ?
		RETURNING value
	`, key.Table(), key.Ref(), initialValue+increment, increment).Scan(&next)
	if err != nil {
		return fmt.Errorf("next value %s: %w", key, err)
	}

	value.Set(next - increment)
	return nil
}
