// Package dynamo implements the grid dialect on Amazon DynamoDB.
//
// Every grid table maps to one DynamoDB table (optionally prefixed, see
// [Config]) with a string partition key _id. Tables are created lazily with
// on-demand billing the first time a tuple, association or sequence needs
// them.
//
// # Storage Layout
//
//   - Entities: one item per entity, _id is the canonical encoding of the id,
//     every tuple column is a top-level attribute. Explicit nulls are stored
//     as NULL attributes.
//   - Associations: one item per row in the association's table. The item
//     carries the row value columns, the row and association key columns, and
//     _rk listing the row key column names.
//   - Sequences: one item per row key in the sequence table, counter in
//     [Config].SequenceAttribute, advanced with an atomic UpdateItem.
//
// Column values are marshaled with attributevalue.Marshal. Numbers read back
// as int64 when integral, otherwise float64.
//
// # Locking
//
// LockRead and LockOptimistic compare the stored version column with a
// consistent read. LockOptimisticForceIncrement bumps it with a conditional
// update. Pessimistic modes return grid.ErrUnsupported.
//
// # Removing Associations
//
// RemoveAssociation deletes every item the association projects, including
// items written by other means. Rows are physical items here, so this is not
// a no-op.
//
// Association writes use TransactWriteItems with at most
// [Config].MaxTransactItems writes per call. A larger merge spans several
// transactions and is not atomic as a whole: if a later transaction fails,
// the earlier ones stay committed and the error wraps [ErrPartialWrite].
package dynamo
