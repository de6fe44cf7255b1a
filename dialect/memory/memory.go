// Package memory provides an embedded grid dialect that keeps every table in
// process memory. It is meant for tests and single-process deployments.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jacentio/grid/grid"
)

// Dialect is an in-memory grid.Dialect. It is safe for concurrent use.
type Dialect struct {
	mu     sync.RWMutex
	tables map[string]map[string]map[string]any

	// associations holds rows by association table, association ref and
	// row ref.
	associations map[string]map[string]map[string]grid.Row

	// sequences holds a *sync.Map per table, mapping row key refs to
	// *atomic.Int64 counters.
	sequences sync.Map
}

var _ grid.Dialect = (*Dialect)(nil)

// New creates an empty Dialect.
func New() *Dialect {
	return &Dialect{
		tables:       make(map[string]map[string]map[string]any),
		associations: make(map[string]map[string]map[string]grid.Row),
	}
}

// GetLockingStrategy offers no locking beyond grid.LockNone.
func (d *Dialect) GetLockingStrategy(_ grid.Lockable, mode grid.LockMode) (grid.LockingStrategy, error) {
	if mode == grid.LockNone {
		return grid.NoLock{}, nil
	}
	return nil, grid.ErrUnsupported
}

func (d *Dialect) GetTuple(_ context.Context, key grid.EntityKey) (*grid.Tuple, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	columns, ok := d.tables[key.Table()][key.IDRef()]
	if !ok {
		return nil, nil
	}
	return grid.NewTuple(grid.NewMapSnapshot(columns)), nil
}

func (d *Dialect) CreateTuple(_ context.Context, key grid.EntityKey) (*grid.Tuple, error) {
	d.mu.Lock()
	d.table(key.Table())
	d.mu.Unlock()

	initial := map[string]any{}
	if key.HasID() {
		initial[grid.IDColumn] = key.ID()
	}
	return grid.NewTuple(grid.NewMapSnapshot(initial)), nil
}

func (d *Dialect) UpdateTuple(_ context.Context, tuple *grid.Tuple, key grid.EntityKey) error {
	columns := tuple.Map()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.table(key.Table())[key.IDRef()] = columns
	return nil
}

func (d *Dialect) RemoveTuple(_ context.Context, key grid.EntityKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !key.HasID() {
		delete(d.tables, key.Table())
		delete(d.associations, key.Table())
		d.sequences.Delete(key.Table())
		return nil
	}
	delete(d.tables[key.Table()], key.IDRef())
	return nil
}

func (d *Dialect) GetAssociation(_ context.Context, key grid.AssociationKey) (*grid.Association, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows := d.associations[key.Table()][key.Ref()]
	if len(rows) == 0 {
		return nil, nil
	}
	snapshot := grid.NewAssociationSnapshot()
	for _, row := range rows {
		snapshot.Put(row.Key, row.Columns)
	}
	return grid.NewAssociation(snapshot), nil
}

func (d *Dialect) CreateAssociation(_ context.Context, _ grid.AssociationKey) (*grid.Association, error) {
	return grid.NewAssociation(nil), nil
}

// UpdateAssociation applies the log to the stored rows, operation by operation.
func (d *Dialect) UpdateAssociation(_ context.Context, association *grid.Association, key grid.AssociationKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	stored := d.associations[key.Table()]
	rows := make(map[string]grid.Row, len(stored[key.Ref()]))
	for ref, row := range stored[key.Ref()] {
		rows[ref] = row
	}
	for _, op := range association.Operations() {
		switch op.Type {
		case grid.AssocClear:
			rows = make(map[string]grid.Row)
		case grid.AssocPutNull:
			rows[op.Key.Ref()] = grid.Row{Key: op.Key, Columns: map[string]any{}}
		case grid.AssocPut:
			rows[op.Key.Ref()] = grid.Row{Key: op.Key, Columns: op.Value.Map()}
		case grid.AssocRemove:
			delete(rows, op.Key.Ref())
		}
	}
	if len(rows) == 0 {
		delete(stored, key.Ref())
		return nil
	}
	if stored == nil {
		stored = make(map[string]map[string]grid.Row)
		d.associations[key.Table()] = stored
	}
	stored[key.Ref()] = rows
	return nil
}

// RemoveAssociation deletes every stored row of the association.
func (d *Dialect) RemoveAssociation(_ context.Context, key grid.AssociationKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.associations[key.Table()], key.Ref())
	return nil
}

func (d *Dialect) CreateTupleAssociation(associationKey grid.AssociationKey, rowKey grid.RowKey) *grid.Tuple {
	return grid.NewTupleAssociation(associationKey, rowKey)
}

// NextValue advances the sequence with a compare-and-swap loop.
func (d *Dialect) NextValue(_ context.Context, key grid.RowKey, value *grid.IntegralValue, increment, initialValue int64) error {
	if increment <= 0 {
		return grid.ErrInvalidIncrement
	}

	table, _ := d.sequences.LoadOrStore(key.Table(), new(sync.Map))
	seed := new(atomic.Int64)
	seed.Store(initialValue)
	v, _ := table.(*sync.Map).LoadOrStore(key.Ref(), seed)
	counter := v.(*atomic.Int64)

	for {
		current := counter.Load()
		if counter.CompareAndSwap(current, current+increment) {
			value.Set(current)
			return nil
		}
	}
}

// table returns the named table, creating it. Callers hold d.mu.
func (d *Dialect) table(name string) map[string]map[string]any {
	t, ok := d.tables[name]
	if !ok {
		t = make(map[string]map[string]any)
		d.tables[name] = t
	}
	return t
}
