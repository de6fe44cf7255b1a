package grid

import "sort"

// AssociationOperationType is the kind of a pending row mutation.
type AssociationOperationType int

const (
	// AssocClear removes every row visible at that point of the log.
	AssocClear AssociationOperationType = iota
	// AssocPutNull adds a row that carries no value columns.
	AssocPutNull
	// AssocPut adds or replaces a row with a tuple value.
	AssocPut
	// AssocRemove removes a row.
	AssocRemove
)

func (t AssociationOperationType) String() string {
	switch t {
	case AssocClear:
		return "CLEAR"
	case AssocPutNull:
		return "PUT_NULL"
	case AssocPut:
		return "PUT"
	case AssocRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// AssociationOperation is one entry of an association's operation log.
// Key and Value are unset for AssocClear; Value is set only for AssocPut.
type AssociationOperation struct {
	Type  AssociationOperationType
	Key   RowKey
	Value *Tuple
}

// Row is one effective association row.
type Row struct {
	Key     RowKey
	Columns map[string]any
}

// AssociationSnapshot is the loaded row set of an association.
type AssociationSnapshot struct {
	rows map[string]Row
}

// NewAssociationSnapshot creates an empty snapshot.
func NewAssociationSnapshot() *AssociationSnapshot {
	return &AssociationSnapshot{rows: make(map[string]Row)}
}

// Put stores a copy of columns under key.
func (s *AssociationSnapshot) Put(key RowKey, columns map[string]any) {
	s.rows[key.Ref()] = Row{Key: key, Columns: copyColumns(columns)}
}

// Get returns the stored columns of a row.
func (s *AssociationSnapshot) Get(key RowKey) (map[string]any, bool) {
	row, ok := s.rows[key.Ref()]
	if !ok {
		return nil, false
	}
	return copyColumns(row.Columns), true
}

// Size returns the number of stored rows.
func (s *AssociationSnapshot) Size() int { return len(s.rows) }

// Keys returns the stored row keys ordered by reference.
func (s *AssociationSnapshot) Keys() []RowKey {
	keys := make([]RowKey, 0, len(s.rows))
	for _, row := range s.rows {
		keys = append(keys, row.Key)
	}
	sortRowKeys(keys)
	return keys
}

// Association is the set of rows linking one entity to others: a loaded
// snapshot plus an ordered log of pending row operations.
//
// An Association is owned by a single unit of work and is not safe for
// concurrent use.
type Association struct {
	snapshot *AssociationSnapshot
	ops      []AssociationOperation
}

// NewAssociation creates an association over snapshot. A nil snapshot is empty.
func NewAssociation(snapshot *AssociationSnapshot) *Association {
	if snapshot == nil {
		snapshot = NewAssociationSnapshot()
	}
	return &Association{snapshot: snapshot}
}

// Get returns the effective columns of a row. Rows without a value, and rows
// whose tuple was never persisted, read as an empty map.
func (a *Association) Get(key RowKey) (map[string]any, bool) {
	ref := key.Ref()
	for i := len(a.ops) - 1; i >= 0; i-- {
		op := a.ops[i]
		switch op.Type {
		case AssocClear:
			return nil, false
		case AssocRemove:
			if op.Key.Ref() == ref {
				return nil, false
			}
		case AssocPutNull:
			if op.Key.Ref() == ref {
				return map[string]any{}, true
			}
		case AssocPut:
			if op.Key.Ref() == ref {
				return op.Value.Map(), true
			}
		}
	}
	return a.snapshot.Get(key)
}

// Put records a row. A nil value is recorded as PutNull.
func (a *Association) Put(key RowKey, value *Tuple) {
	if value == nil {
		a.PutNull(key)
		return
	}
	a.ops = append(a.ops, AssociationOperation{Type: AssocPut, Key: key, Value: value})
}

// PutNull records a row that carries no value.
func (a *Association) PutNull(key RowKey) {
	a.ops = append(a.ops, AssociationOperation{Type: AssocPutNull, Key: key})
}

// Remove records the removal of a row.
func (a *Association) Remove(key RowKey) {
	a.ops = append(a.ops, AssociationOperation{Type: AssocRemove, Key: key})
}

// Clear records the removal of every row visible so far. Operations added
// afterwards still apply.
func (a *Association) Clear() {
	a.ops = append(a.ops, AssociationOperation{Type: AssocClear})
}

// Rows replays the log over the snapshot and returns the effective rows
// ordered by row key reference.
func (a *Association) Rows() []Row {
	rows := make(map[string]Row, len(a.snapshot.rows))
	for ref, row := range a.snapshot.rows {
		rows[ref] = Row{Key: row.Key, Columns: copyColumns(row.Columns)}
	}
	for _, op := range a.ops {
		switch op.Type {
		case AssocClear:
			rows = make(map[string]Row)
		case AssocPutNull:
			rows[op.Key.Ref()] = Row{Key: op.Key, Columns: map[string]any{}}
		case AssocPut:
			rows[op.Key.Ref()] = Row{Key: op.Key, Columns: op.Value.Map()}
		case AssocRemove:
			delete(rows, op.Key.Ref())
		}
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Ref() < out[j].Key.Ref() })
	return out
}

// Keys returns the effective row keys ordered by reference.
func (a *Association) Keys() []RowKey {
	rows := a.Rows()
	keys := make([]RowKey, len(rows))
	for i, row := range rows {
		keys[i] = row.Key
	}
	return keys
}

// Size returns the number of effective rows.
func (a *Association) Size() int { return len(a.Rows()) }

// IsEmpty reports whether the association has no effective rows.
func (a *Association) IsEmpty() bool { return a.Size() == 0 }

// Cleared reports whether the log contains a clear.
func (a *Association) Cleared() bool {
	for _, op := range a.ops {
		if op.Type == AssocClear {
			return true
		}
	}
	return false
}

// Operations returns a copy of the pending operation log.
func (a *Association) Operations() []AssociationOperation {
	return append([]AssociationOperation(nil), a.ops...)
}

// Snapshot returns the loaded row set.
func (a *Association) Snapshot() *AssociationSnapshot { return a.snapshot }

func copyColumns(columns map[string]any) map[string]any {
	m := make(map[string]any, len(columns))
	for k, v := range columns {
		m[k] = v
	}
	return m
}

func sortRowKeys(keys []RowKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Ref() < keys[j].Ref() })
}
