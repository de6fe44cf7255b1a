// Package sqlite provides a grid dialect backed by a single SQLite file.
//
// Every grid table shares three SQL tables: grid_documents holds one JSON
// document per entity, grid_rows holds association rows keyed by the
// association and row key references, and grid_sequences holds counters.
// Values round-trip through JSON, so integers come back as int64 and other
// numbers as float64. Byte slices are stored as {"$b": "<base64>"} objects
// and come back as []byte.
package sqlite
