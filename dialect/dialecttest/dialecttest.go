// Package dialecttest is a conformance suite for grid.Dialect implementations.
//
// A backend's tests call Run with a factory:
//
//	func TestConformance(t *testing.T) {
//	    dialecttest.Run(t, func(t *testing.T) grid.Dialect { return memory.New() })
//	}
package dialecttest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/grid/grid"
	"github.com/jacentio/grid/internal/keycodec"
)

// Factory returns the dialect under test. It is called once per subtest.
type Factory func(t *testing.T) grid.Dialect

// Run executes every conformance check against dialects built by factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, d grid.Dialect)
	}{
		{"AccountScenario", testAccountScenario},
		{"GetTupleMissing", testGetTupleMissing},
		{"CreateTupleRecordsID", testCreateTupleRecordsID},
		{"TupleRoundTrip", testTupleRoundTrip},
		{"UpdateTupleIdempotent", testUpdateTupleIdempotent},
		{"UpdateTupleReplacesRecord", testUpdateTupleReplacesRecord},
		{"RemoveTupleSingleRecord", testRemoveTupleSingleRecord},
		{"RemoveTupleWholeTable", testRemoveTupleWholeTable},
		{"RemoveTupleDropsAssociationsAndSequences", testRemoveTupleDropsAssociationsAndSequences},
		{"CreateTupleAssociation", testCreateTupleAssociation},
		{"AssociationRoundTrip", testAssociationRoundTrip},
		{"AssociationClearThenPut", testAssociationClearThenPut},
		{"AssociationRemoveRow", testAssociationRemoveRow},
		{"AssociationEmptyValues", testAssociationEmptyValues},
		{"AssociationsAreIsolated", testAssociationsAreIsolated},
		{"RemoveAssociation", testRemoveAssociation},
		{"NextValueConcurrent", testNextValueConcurrent},
		{"NextValueSeed", testNextValueSeed},
		{"NextValueInvalidIncrement", testNextValueInvalidIncrement},
		{"LockingStrategy", testLockingStrategy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, factory(t))
		})
	}
}

// AssertValue compares two column values by canonical encoding, so numbers
// decoded by a backend as int64 or float64 match the values written.
func AssertValue(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, keycodec.Encode(expected), keycodec.Encode(actual), msgAndArgs...)
}

func testAccountScenario(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := grid.NewEntityKey("Account", 42)

	tuple, err := d.CreateTuple(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, tuple)

	tuple.Put("balance", 100)
	require.NoError(t, d.UpdateTuple(ctx, tuple, key))

	loaded, err := d.GetTuple(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	balance, ok := loaded.Get("balance")
	require.True(t, ok)
	AssertValue(t, 100, balance)
}

func testGetTupleMissing(t *testing.T, d grid.Dialect) {
	ctx := context.Background()

	tuple, err := d.GetTuple(ctx, grid.NewEntityKey("MissingTable", "nope"))
	require.NoError(t, err)
	assert.Nil(t, tuple)

	_, err = d.CreateTuple(ctx, grid.NewEntityKey("Present", "a"))
	require.NoError(t, err)
	tuple, err = d.GetTuple(ctx, grid.NewEntityKey("Present", "b"))
	require.NoError(t, err)
	assert.Nil(t, tuple)
}

func testCreateTupleRecordsID(t *testing.T, d grid.Dialect) {
	ctx := context.Background()

	tuple, err := d.CreateTuple(ctx, grid.NewEntityKey("Customer", "c-1"))
	require.NoError(t, err)

	id, ok := tuple.Get(grid.IDColumn)
	require.True(t, ok)
	assert.Equal(t, "c-1", id)
}

func testTupleRoundTrip(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := grid.NewEntityKey("Profile", "p-1")

	tuple, err := d.CreateTuple(ctx, key)
	require.NoError(t, err)
	tuple.Put("name", "Ada")
	tuple.Put("age", 36)
	tuple.Put("score", 12.5)
	tuple.Put("active", true)
	tuple.Put("nickname", nil)
	tuple.Put("tags", []any{"a", "b"})
	tuple.Put("address", map[string]any{"city": "London", "zip": "N1"})
	tuple.Put("payload", []byte{1, 2})
	tuple.Put("scratch", "x")
	tuple.Remove("scratch")
	require.NoError(t, d.UpdateTuple(ctx, tuple, key))

	loaded, err := d.GetTuple(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, tuple.ColumnNames(), loaded.ColumnNames())
	for _, column := range tuple.ColumnNames() {
		want, _ := tuple.Get(column)
		got, ok := loaded.Get(column)
		require.True(t, ok, "column %s", column)
		AssertValue(t, want, got, "column %s", column)
	}

	// AssertValue cannot tell []byte from its base64 string.
	payload, _ := loaded.Get("payload")
	assert.Equal(t, []byte{1, 2}, payload)

	nickname, ok := loaded.Get("nickname")
	assert.True(t, ok, "explicit null must survive a round trip")
	assert.Nil(t, nickname)

	_, ok = loaded.Get("scratch")
	assert.False(t, ok)
}

func testUpdateTupleIdempotent(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := grid.NewEntityKey("Ledger", int64(7))

	tuple, err := d.CreateTuple(ctx, key)
	require.NoError(t, err)
	tuple.Put("total", 5)
	require.NoError(t, d.UpdateTuple(ctx, tuple, key))
	require.NoError(t, d.UpdateTuple(ctx, tuple, key))

	loaded, err := d.GetTuple(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"id", "total"}, loaded.ColumnNames())
}

func testUpdateTupleReplacesRecord(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := grid.NewEntityKey("Document", "d-1")

	tuple, err := d.CreateTuple(ctx, key)
	require.NoError(t, err)
	tuple.Put("title", "draft")
	tuple.Put("body", "text")
	require.NoError(t, d.UpdateTuple(ctx, tuple, key))

	loaded, err := d.GetTuple(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	loaded.Remove("body")
	loaded.Put("title", "final")
	require.NoError(t, d.UpdateTuple(ctx, loaded, key))

	reloaded, err := d.GetTuple(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, []string{"id", "title"}, reloaded.ColumnNames())
	title, _ := reloaded.Get("title")
	assert.Equal(t, "final", title)
}

func testRemoveTupleSingleRecord(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	keys := storeEntities(t, d, "Sibling", 3)

	require.NoError(t, d.RemoveTuple(ctx, keys[1]))

	for i, key := range keys {
		tuple, err := d.GetTuple(ctx, key)
		require.NoError(t, err)
		if i == 1 {
			assert.Nil(t, tuple, "removed record must be gone")
		} else {
			assert.NotNil(t, tuple, "sibling %d must survive", i)
		}
	}
}

func testRemoveTupleWholeTable(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	keys := storeEntities(t, d, "Dropped", 3)
	survivor := storeEntities(t, d, "Kept", 1)[0]

	require.NoError(t, d.RemoveTuple(ctx, grid.NewEntityKey("Dropped", nil)))

	for _, key := range keys {
		tuple, err := d.GetTuple(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, tuple)
	}
	tuple, err := d.GetTuple(ctx, survivor)
	require.NoError(t, err)
	assert.NotNil(t, tuple)

	// The table can be used again after being dropped.
	again := storeEntities(t, d, "Dropped", 1)[0]
	tuple, err = d.GetTuple(ctx, again)
	require.NoError(t, err)
	assert.NotNil(t, tuple)
}

func testRemoveTupleDropsAssociationsAndSequences(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	dropped := grid.NewAssociationKey("Dropped", []string{"owner_id"}, []any{1})
	kept := ordersKey(1)
	storeOrders(t, d, kept, 1, "o-1")

	assoc, err := d.CreateAssociation(ctx, dropped)
	require.NoError(t, err)
	row := grid.NewRowKey("Dropped", []string{"owner_id", "order_id"}, []any{1, "o-1"})
	value := d.CreateTupleAssociation(dropped, row)
	value.Put("owner_id", 1)
	value.Put("order_id", "o-1")
	assoc.Put(row, value)
	require.NoError(t, d.UpdateAssociation(ctx, assoc, dropped))

	seq := grid.NewRowKey("Dropped", []string{"sequence_name"}, []any{"dropped"})
	var v grid.IntegralValue
	require.NoError(t, d.NextValue(ctx, seq, &v, 1, 0))
	require.NoError(t, d.NextValue(ctx, seq, &v, 1, 0))
	require.Equal(t, int64(1), v.Value())

	require.NoError(t, d.RemoveTuple(ctx, grid.NewEntityKey("Dropped", nil)))

	got, err := d.GetAssociation(ctx, dropped)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, d.NextValue(ctx, seq, &v, 1, 0))
	assert.Equal(t, int64(0), v.Value())

	got, err = d.GetAssociation(ctx, kept)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"o-1"}, orderIDs(got))
}

func testCreateTupleAssociation(t *testing.T, d grid.Dialect) {
	assocKey := ordersKey(1)
	tuple := d.CreateTupleAssociation(assocKey, orderRow(1, "o-1"))
	require.NotNil(t, tuple)

	assert.Empty(t, tuple.ColumnNames())
	_, ok := tuple.Get("anything")
	assert.False(t, ok)

	tuple.Put("qty", 2)
	assert.Equal(t, []string{"qty"}, tuple.ColumnNames())
}

func testAssociationRoundTrip(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := ordersKey(10)

	missing, err := d.GetAssociation(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assoc, err := d.CreateAssociation(ctx, key)
	require.NoError(t, err)
	for _, id := range []string{"o-1", "o-2"} {
		row := orderRow(10, id)
		value := d.CreateTupleAssociation(key, row)
		value.Put("owner_id", 10)
		value.Put("order_id", id)
		value.Put("qty", 3)
		assoc.Put(row, value)
	}
	require.NoError(t, d.UpdateAssociation(ctx, assoc, key))

	loaded, err := d.GetAssociation(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.Size())

	columns, ok := loaded.Get(orderRow(10, "o-2"))
	require.True(t, ok)
	AssertValue(t, 3, columns["qty"])
	AssertValue(t, "o-2", columns["order_id"])
}

func testAssociationClearThenPut(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := ordersKey(20)
	storeOrders(t, d, key, 20, "o-1", "o-2")

	assoc, err := d.GetAssociation(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, assoc)

	assoc.Clear()
	row := orderRow(20, "o-3")
	value := d.CreateTupleAssociation(key, row)
	value.Put("owner_id", 20)
	value.Put("order_id", "o-3")
	assoc.Put(row, value)
	require.NoError(t, d.UpdateAssociation(ctx, assoc, key))

	loaded, err := d.GetAssociation(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"o-3"}, orderIDs(loaded))
}

func testAssociationRemoveRow(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := ordersKey(30)
	storeOrders(t, d, key, 30, "o-1", "o-2", "o-3")

	assoc, err := d.GetAssociation(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, assoc)
	assoc.Remove(orderRow(30, "o-2"))
	require.NoError(t, d.UpdateAssociation(ctx, assoc, key))

	loaded, err := d.GetAssociation(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"o-1", "o-3"}, orderIDs(loaded))
}

func testAssociationEmptyValues(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := ordersKey(40)

	assoc, err := d.CreateAssociation(ctx, key)
	require.NoError(t, err)
	nullRow := orderRow(40, "o-null")
	emptyRow := orderRow(40, "o-empty")
	assoc.PutNull(nullRow)
	assoc.Put(emptyRow, d.CreateTupleAssociation(key, emptyRow))
	require.NoError(t, d.UpdateAssociation(ctx, assoc, key))

	loaded, err := d.GetAssociation(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.Size())

	for _, row := range []grid.RowKey{nullRow, emptyRow} {
		columns, ok := loaded.Get(row)
		require.True(t, ok, "row %s", row)
		assert.NotNil(t, columns)
	}
}

func testAssociationsAreIsolated(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	first := ordersKey(50)
	second := ordersKey(51)
	storeOrders(t, d, first, 50, "o-1")
	storeOrders(t, d, second, 51, "o-9")

	loaded, err := d.GetAssociation(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"o-1"}, orderIDs(loaded))
}

func testRemoveAssociation(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := ordersKey(60)
	storeOrders(t, d, key, 60, "o-1", "o-2")

	require.NoError(t, d.RemoveAssociation(ctx, key))

	loaded, err := d.GetAssociation(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func testNextValueConcurrent(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := grid.NewRowKey("sequences", []string{"sequence_name"}, []any{"orders"})
	const k = 25

	var wg sync.WaitGroup
	values := make([]int64, k)
	errs := make([]error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var v grid.IntegralValue
			errs[i] = d.NextValue(ctx, key, &v, 1, 0)
			values[i] = v.Value()
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		assert.Equal(t, int64(i), v)
	}

	var next grid.IntegralValue
	require.NoError(t, d.NextValue(ctx, key, &next, 1, 0))
	assert.Equal(t, int64(k), next.Value())
}

func testNextValueSeed(t *testing.T, d grid.Dialect) {
	ctx := context.Background()
	key := grid.NewRowKey("sequences", []string{"sequence_name"}, []any{"invoices"})

	var v grid.IntegralValue
	require.NoError(t, d.NextValue(ctx, key, &v, 5, 10))
	assert.True(t, v.IsSet())
	assert.Equal(t, int64(10), v.Value())

	require.NoError(t, d.NextValue(ctx, key, &v, 5, 10))
	assert.Equal(t, int64(15), v.Value())
}

func testNextValueInvalidIncrement(t *testing.T, d grid.Dialect) {
	key := grid.NewRowKey("sequences", []string{"sequence_name"}, []any{"bad"})
	var v grid.IntegralValue
	err := d.NextValue(context.Background(), key, &v, 0, 1)
	assert.ErrorIs(t, err, grid.ErrInvalidIncrement)
	assert.False(t, v.IsSet())
}

func testLockingStrategy(t *testing.T, d grid.Dialect) {
	lockable := grid.Lockable{EntityName: "Account", RootTable: "Account", VersionColumn: "version"}

	strategy, err := d.GetLockingStrategy(lockable, grid.LockNone)
	require.NoError(t, err)
	require.NotNil(t, strategy)
	assert.NoError(t, strategy.Lock(context.Background(), 1, 1))

	for _, mode := range []grid.LockMode{grid.LockPessimisticRead, grid.LockPessimisticWrite, grid.LockPessimisticForceIncrement} {
		strategy, err := d.GetLockingStrategy(lockable, mode)
		assert.ErrorIs(t, err, grid.ErrUnsupported, "mode %s", mode)
		assert.Nil(t, strategy)
	}
}

// --- helpers ---

func storeEntities(t *testing.T, d grid.Dialect, table string, n int) []grid.EntityKey {
	t.Helper()
	ctx := context.Background()
	keys := make([]grid.EntityKey, n)
	for i := range keys {
		keys[i] = grid.NewEntityKey(table, fmt.Sprintf("%s-%d", table, i))
		tuple, err := d.CreateTuple(ctx, keys[i])
		require.NoError(t, err)
		tuple.Put("position", i)
		require.NoError(t, d.UpdateTuple(ctx, tuple, keys[i]))
	}
	return keys
}

func ordersKey(owner int) grid.AssociationKey {
	return grid.NewAssociationKey("Account_Orders", []string{"owner_id"}, []any{owner})
}

func orderRow(owner int, orderID string) grid.RowKey {
	return grid.NewRowKey("Account_Orders", []string{"owner_id", "order_id"}, []any{owner, orderID})
}

func storeOrders(t *testing.T, d grid.Dialect, key grid.AssociationKey, owner int, ids ...string) {
	t.Helper()
	ctx := context.Background()
	assoc, err := d.CreateAssociation(ctx, key)
	require.NoError(t, err)
	for _, id := range ids {
		row := orderRow(owner, id)
		value := d.CreateTupleAssociation(key, row)
		value.Put("owner_id", owner)
		value.Put("order_id", id)
		assoc.Put(row, value)
	}
	require.NoError(t, d.UpdateAssociation(ctx, assoc, key))
}

func orderIDs(assoc *grid.Association) []string {
	var ids []string
	for _, key := range assoc.Keys() {
		v, _ := key.Value("order_id")
		ids = append(ids, fmt.Sprint(v))
	}
	sort.Strings(ids)
	return ids
}
