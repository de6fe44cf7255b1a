package grid

import "sort"

// TupleOperationType is the kind of a pending column mutation.
type TupleOperationType int

const (
	// OpPut sets a column to a non-nil value.
	OpPut TupleOperationType = iota
	// OpPutNull sets a column to an explicit null.
	OpPutNull
	// OpRemove removes a column.
	OpRemove
)

func (t TupleOperationType) String() string {
	switch t {
	case OpPut:
		return "PUT"
	case OpPutNull:
		return "PUT_NULL"
	case OpRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// TupleOperation is one entry of a tuple's operation log.
type TupleOperation struct {
	Type   TupleOperationType
	Column string
	Value  any
}

// Tuple is one entity's column state: a base snapshot plus an ordered log of
// pending column operations. The effective value of a column is given by the
// last operation touching it, else by the snapshot.
//
// A Tuple is owned by a single unit of work and is not safe for concurrent use.
type Tuple struct {
	snapshot TupleSnapshot
	ops      []TupleOperation
}

// NewTuple creates a tuple over snapshot. A nil snapshot means EmptySnapshot.
func NewTuple(snapshot TupleSnapshot) *Tuple {
	if snapshot == nil {
		snapshot = EmptySnapshot
	}
	return &Tuple{snapshot: snapshot}
}

// Get returns the effective value of column. Explicit nulls return (nil, true).
func (t *Tuple) Get(column string) (any, bool) {
	for i := len(t.ops) - 1; i >= 0; i-- {
		op := t.ops[i]
		if op.Column != column {
			continue
		}
		switch op.Type {
		case OpPut:
			return op.Value, true
		case OpPutNull:
			return nil, true
		default:
			return nil, false
		}
	}
	return t.snapshot.Get(column)
}

// Put records a new value for column. A nil value is recorded as OpPutNull.
func (t *Tuple) Put(column string, value any) {
	if value == nil {
		t.ops = append(t.ops, TupleOperation{Type: OpPutNull, Column: column})
		return
	}
	t.ops = append(t.ops, TupleOperation{Type: OpPut, Column: column, Value: value})
}

// Remove records the removal of column.
func (t *Tuple) Remove(column string) {
	t.ops = append(t.ops, TupleOperation{Type: OpRemove, Column: column})
}

// ColumnNames returns the effective column names in sorted order.
func (t *Tuple) ColumnNames() []string {
	m := t.Map()
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map replays the log over the snapshot and returns the merged columns.
// The result is never nil.
func (t *Tuple) Map() map[string]any {
	m := make(map[string]any)
	for _, name := range t.snapshot.ColumnNames() {
		v, _ := t.snapshot.Get(name)
		m[name] = v
	}
	for _, op := range t.ops {
		switch op.Type {
		case OpPut:
			m[op.Column] = op.Value
		case OpPutNull:
			m[op.Column] = nil
		case OpRemove:
			delete(m, op.Column)
		}
	}
	return m
}

// Operations returns a copy of the pending operation log.
func (t *Tuple) Operations() []TupleOperation {
	return append([]TupleOperation(nil), t.ops...)
}

// Snapshot returns the base snapshot.
func (t *Tuple) Snapshot() TupleSnapshot { return t.snapshot }
