package grid

import (
	"fmt"
	"strings"

	"github.com/jacentio/grid/internal/keycodec"
)

// EntityKey identifies one entity instance: a table and an optional id.
//
// Keys are values. Two keys are equal when their tables match and their ids
// have the same canonical encoding, which makes 42, int64(42) and 42.0 the
// same id. Use Ref as a Go map key; the id itself may not be comparable.
type EntityKey struct {
	table string
	id    any
	ref   string
	hash  uint64
}

// NewEntityKey creates an EntityKey. A nil id addresses the whole table.
// It panics if table is empty.
func NewEntityKey(table string, id any) EntityKey {
	mustTable(table)
	ref := keycodec.Join(table, keycodec.Encode(id))
	return EntityKey{
		table: table,
		id:    id,
		ref:   ref,
		hash:  keycodec.Hash(ref),
	}
}

// Table returns the table (collection) name.
func (k EntityKey) Table() string { return k.table }

// ID returns the entity id, or nil when the key addresses the whole table.
func (k EntityKey) ID() any { return k.id }

// HasID reports whether the key carries an id.
func (k EntityKey) HasID() bool { return k.id != nil }

// Ref returns the canonical reference string for the key.
func (k EntityKey) Ref() string { return k.ref }

// Hash returns the precomputed hash of the key.
func (k EntityKey) Hash() uint64 { return k.hash }

// IDRef returns the canonical encoding of the id alone.
func (k EntityKey) IDRef() string { return keycodec.Encode(k.id) }

// Equal reports whether two keys identify the same entity.
func (k EntityKey) Equal(other EntityKey) bool {
	return k.hash == other.hash && k.ref == other.ref
}

func (k EntityKey) String() string {
	return fmt.Sprintf("EntityKey{table=%s, id=%v}", k.table, k.id)
}

// columns is the shape shared by RowKey and AssociationKey.
type columns struct {
	table  string
	names  []string
	values []any
	ref    string
	hash   uint64
}

func newColumns(table string, names []string, values []any) columns {
	mustTable(table)
	if len(names) != len(values) {
		panic(fmt.Sprintf("grid: %d column names but %d values for table %q", len(names), len(values), table))
	}
	c := columns{
		table:  table,
		names:  append([]string(nil), names...),
		values: append([]any(nil), values...),
	}
	c.ref = keycodec.Join(table, keycodec.Encode(c.names), keycodec.Encode(c.values))
	c.hash = keycodec.Hash(c.ref)
	return c
}

func (c columns) value(column string) (any, bool) {
	for i, name := range c.names {
		if name == column {
			return c.values[i], true
		}
	}
	return nil, false
}

func (c columns) format(kind string) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteString("{table=")
	b.WriteString(c.table)
	for i, name := range c.names {
		fmt.Fprintf(&b, ", %s=%v", name, c.values[i])
	}
	b.WriteByte('}')
	return b.String()
}

// RowKey identifies one row within an association's row set.
// Column names and values are aligned by position.
type RowKey struct {
	c columns
}

// NewRowKey creates a RowKey. The slices are copied.
// It panics if table is empty or the slices differ in length.
func NewRowKey(table string, columnNames []string, columnValues []any) RowKey {
	return RowKey{c: newColumns(table, columnNames, columnValues)}
}

// Table returns the table the row belongs to.
func (k RowKey) Table() string { return k.c.table }

// ColumnNames returns a copy of the key column names.
func (k RowKey) ColumnNames() []string { return append([]string(nil), k.c.names...) }

// ColumnValues returns a copy of the key column values.
func (k RowKey) ColumnValues() []any { return append([]any(nil), k.c.values...) }

// Value returns the value of a key column.
func (k RowKey) Value(column string) (any, bool) { return k.c.value(column) }

// Ref returns the canonical reference string for the key.
func (k RowKey) Ref() string { return k.c.ref }

// Hash returns the precomputed hash of the key.
func (k RowKey) Hash() uint64 { return k.c.hash }

// Equal compares table, names and values positionally.
func (k RowKey) Equal(other RowKey) bool {
	return k.c.hash == other.c.hash && k.c.ref == other.c.ref
}

func (k RowKey) String() string { return k.c.format("RowKey") }

// AssociationKey identifies one association collection: the table holding
// the rows and the column values that tie them to their owner.
type AssociationKey struct {
	c columns
}

// NewAssociationKey creates an AssociationKey. The slices are copied.
// It panics if table is empty or the slices differ in length.
func NewAssociationKey(table string, columnNames []string, columnValues []any) AssociationKey {
	return AssociationKey{c: newColumns(table, columnNames, columnValues)}
}

// Table returns the table holding the association rows.
func (k AssociationKey) Table() string { return k.c.table }

// ColumnNames returns a copy of the key column names.
func (k AssociationKey) ColumnNames() []string { return append([]string(nil), k.c.names...) }

// ColumnValues returns a copy of the key column values.
func (k AssociationKey) ColumnValues() []any { return append([]any(nil), k.c.values...) }

// Value returns the value of a key column.
func (k AssociationKey) Value(column string) (any, bool) { return k.c.value(column) }

// Ref returns the canonical reference string for the key.
func (k AssociationKey) Ref() string { return k.c.ref }

// Hash returns the precomputed hash of the key.
func (k AssociationKey) Hash() uint64 { return k.c.hash }

// Equal compares table, names and values positionally.
func (k AssociationKey) Equal(other AssociationKey) bool {
	return k.c.hash == other.c.hash && k.c.ref == other.c.ref
}

func (k AssociationKey) String() string { return k.c.format("AssociationKey") }

// Matches reports whether columns carries every key column with an equal value.
func (k AssociationKey) Matches(cols map[string]any) bool {
	for i, name := range k.c.names {
		v, ok := cols[name]
		if !ok || keycodec.Encode(v) != keycodec.Encode(k.c.values[i]) {
			return false
		}
	}
	return true
}

func mustTable(table string) {
	if table == "" {
		panic("grid: key requires a table")
	}
}
