package grid

import "sort"

// TupleSnapshot is a read-only view of an entity's last persisted state.
type TupleSnapshot interface {
	// Get returns the stored value of a column.
	Get(column string) (any, bool)

	// ColumnNames returns the stored column names in sorted order.
	ColumnNames() []string

	// IsEmpty reports whether the snapshot holds no columns.
	IsEmpty() bool
}

// MapSnapshot is a TupleSnapshot backed by a loaded column map.
type MapSnapshot struct {
	columns map[string]any
}

// NewMapSnapshot copies columns into a new snapshot.
func NewMapSnapshot(columns map[string]any) *MapSnapshot {
	m := make(map[string]any, len(columns))
	for k, v := range columns {
		m[k] = v
	}
	return &MapSnapshot{columns: m}
}

func (s *MapSnapshot) Get(column string) (any, bool) {
	v, ok := s.columns[column]
	return v, ok
}

func (s *MapSnapshot) ColumnNames() []string {
	names := make([]string, 0, len(s.columns))
	for k := range s.columns {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s *MapSnapshot) IsEmpty() bool { return len(s.columns) == 0 }

type emptySnapshot struct{}

func (emptySnapshot) Get(string) (any, bool) { return nil, false }
func (emptySnapshot) ColumnNames() []string  { return nil }
func (emptySnapshot) IsEmpty() bool          { return true }

// EmptySnapshot backs tuples whose row has never been persisted.
var EmptySnapshot TupleSnapshot = emptySnapshot{}
