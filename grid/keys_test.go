package grid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jacentio/grid/grid"
)

func TestEntityKey_Equality(t *testing.T) {
	tests := []struct {
		name  string
		a, b  grid.EntityKey
		equal bool
	}{
		{"same int id", grid.NewEntityKey("Account", 42), grid.NewEntityKey("Account", 42), true},
		{"int and int64", grid.NewEntityKey("Account", 42), grid.NewEntityKey("Account", int64(42)), true},
		{"int and float", grid.NewEntityKey("Account", 42), grid.NewEntityKey("Account", 42.0), true},
		{"string and int", grid.NewEntityKey("Account", "42"), grid.NewEntityKey("Account", 42), false},
		{"different table", grid.NewEntityKey("Account", 1), grid.NewEntityKey("Customer", 1), false},
		{"nil ids", grid.NewEntityKey("Account", nil), grid.NewEntityKey("Account", nil), true},
		{"nil and zero", grid.NewEntityKey("Account", nil), grid.NewEntityKey("Account", 0), false},
		{
			"composite",
			grid.NewEntityKey("Line", map[string]any{"order": 1, "line": 2}),
			grid.NewEntityKey("Line", map[string]any{"line": 2, "order": 1}),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.a.Ref() == tt.b.Ref())
			if tt.equal {
				assert.Equal(t, tt.a.Hash(), tt.b.Hash())
			}
		})
	}
}

func TestEntityKey_Accessors(t *testing.T) {
	key := grid.NewEntityKey("Account", 42)
	assert.Equal(t, "Account", key.Table())
	assert.Equal(t, 42, key.ID())
	assert.True(t, key.HasID())
	assert.Equal(t, "EntityKey{table=Account, id=42}", key.String())

	assert.False(t, grid.NewEntityKey("Account", nil).HasID())
}

func TestEntityKey_UsableAsMapKey(t *testing.T) {
	seen := map[string]int{}
	seen[grid.NewEntityKey("Account", 1).Ref()]++
	seen[grid.NewEntityKey("Account", int64(1)).Ref()]++
	seen[grid.NewEntityKey("Account", 2).Ref()]++
	assert.Len(t, seen, 2)
}

func TestNewEntityKey_PanicsWithoutTable(t *testing.T) {
	assert.Panics(t, func() { grid.NewEntityKey("", 1) })
}

func TestRowKey_PositionalEquality(t *testing.T) {
	a := grid.NewRowKey("Orders", []string{"owner", "item"}, []any{1, "x"})
	b := grid.NewRowKey("Orders", []string{"owner", "item"}, []any{1, "x"})
	swapped := grid.NewRowKey("Orders", []string{"item", "owner"}, []any{"x", 1})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(swapped))
	assert.Equal(t, "RowKey{table=Orders, owner=1, item=x}", a.String())
}

func TestRowKey_CopiesSlices(t *testing.T) {
	names := []string{"owner"}
	values := []any{1}
	key := grid.NewRowKey("Orders", names, values)
	names[0] = "changed"
	values[0] = 2

	assert.Equal(t, []string{"owner"}, key.ColumnNames())
	v, ok := key.Value("owner")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	key.ColumnValues()[0] = 3
	v, _ = key.Value("owner")
	assert.Equal(t, 1, v)
}

func TestRowKey_PanicsOnMismatchedColumns(t *testing.T) {
	assert.Panics(t, func() { grid.NewRowKey("Orders", []string{"a", "b"}, []any{1}) })
	assert.Panics(t, func() { grid.NewRowKey("", nil, nil) })
}

func TestAssociationKey_Matches(t *testing.T) {
	key := grid.NewAssociationKey("Orders", []string{"owner"}, []any{7})

	assert.True(t, key.Matches(map[string]any{"owner": int64(7), "item": "x"}))
	assert.False(t, key.Matches(map[string]any{"owner": 8}))
	assert.False(t, key.Matches(map[string]any{"item": "x"}))
	assert.Equal(t, "AssociationKey{table=Orders, owner=7}", key.String())
}

func TestAssociationKey_DistinctFromRowKeyShape(t *testing.T) {
	assoc := grid.NewAssociationKey("Orders", []string{"owner"}, []any{7})
	row := grid.NewRowKey("Orders", []string{"owner"}, []any{7})

	// Same shape, same canonical reference; the types keep them apart.
	assert.Equal(t, assoc.Ref(), row.Ref())
	assert.Equal(t, "Orders", assoc.Table())
	assert.Equal(t, []any{7}, assoc.ColumnValues())
}
