// Package grid lets an object/relational persistence engine keep entity
// state and associations in a schema-less document store, using the same
// key, row and column vocabulary it uses for relational databases.
//
// # Keys
//
// Three immutable value types address data:
//
//   - [EntityKey] - one entity: a table and an id
//   - [AssociationKey] - one association: a table and the owner's columns
//   - [RowKey] - one row inside an association
//
// Keys compare by canonical encoding. Use Ref() when a Go map key is needed.
//
// # Change Tracking
//
// A [Tuple] holds a loaded [TupleSnapshot] plus an ordered log of column
// operations. An [Association] holds a loaded row set plus an ordered log of
// row operations:
//
//	tuple := grid.NewTuple(grid.EmptySnapshot)
//	tuple.Put("balance", 100)
//	tuple.Put("nickname", nil) // explicit null
//	tuple.Remove("legacy")
//
// Effective state is always the log replayed over the snapshot, in order.
//
// # Dialects
//
// A [Dialect] translates tuples and associations into backend writes.
// Implementations live under dialect/: memory, dynamo (Amazon DynamoDB) and
// sqlite.
//
// # Errors
//
//   - [ErrUnsupported] - the backend lacks a capability (e.g. a lock mode)
//   - [ErrOptimisticLock] - a version check failed
//   - [ErrInvalidIncrement] - NextValue called with a non-positive increment
//
// Missing records are not errors: GetTuple and GetAssociation return nil.
package grid
