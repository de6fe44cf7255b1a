package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jacentio/grid/grid"
)

//go:embed schema.sql
var schemaSQL string

// Dialect implements grid.Dialect on a SQLite database file.
type Dialect struct {
	db     *sql.DB
	config Config
}

var _ grid.Dialect = (*Dialect)(nil)

// Open creates or opens the database at config.Path and applies the schema.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - a single connection, so SQLite never sees two writers
//   - the configured busy timeout and synchronous level
func Open(config Config) (*Dialect, error) {
	config.validate()

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = " + config.Synchronous,
		fmt.Sprintf("PRAGMA busy_timeout = %d", config.BusyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Dialect{db: db, config: config}, nil
}

// Close closes the database connection.
func (d *Dialect) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// GetLockingStrategy offers no locking beyond grid.LockNone.
func (d *Dialect) GetLockingStrategy(_ grid.Lockable, mode grid.LockMode) (grid.LockingStrategy, error) {
	if mode == grid.LockNone {
		return grid.NoLock{}, nil
	}
	return nil, grid.ErrUnsupported
}

func (d *Dialect) GetTuple(ctx context.Context, key grid.EntityKey) (*grid.Tuple, error) {
	var doc string
	err := d.db.QueryRowContext(ctx,
		`SELECT doc FROM grid_documents WHERE tbl = ? AND ref = ?`,
		key.Table(), key.IDRef(),
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tuple %s: %w", key, err)
	}

	columns, err := unmarshalDoc(doc)
	if err != nil {
		return nil, fmt.Errorf("get tuple %s: %w", key, err)
	}
	return grid.NewTuple(grid.NewMapSnapshot(columns)), nil
}

// CreateTuple returns a fresh tuple. Tables need no creation: every grid
// table shares grid_documents.
func (d *Dialect) CreateTuple(_ context.Context, key grid.EntityKey) (*grid.Tuple, error) {
	initial := map[string]any{}
	if key.HasID() {
		initial[grid.IDColumn] = key.ID()
	}
	return grid.NewTuple(grid.NewMapSnapshot(initial)), nil
}

// UpdateTuple upserts the tuple's merged columns as one document.
func (d *Dialect) UpdateTuple(ctx context.Context, tuple *grid.Tuple, key grid.EntityKey) error {
	doc, err := marshalDoc(tuple.Map())
	if err != nil {
		return fmt.Errorf("update tuple %s: %w", key, err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO grid_documents (tbl, ref, doc) VALUES (?, ?, ?)
		ON CONFLICT(tbl, ref) DO UPDATE SET doc = excluded.doc
	`, key.Table(), key.IDRef(), doc)
	if err != nil {
		return fmt.Errorf("update tuple %s: %w", key, err)
	}
	return nil
}

// RemoveTuple deletes one document. A key without an id drops everything
// stored under the table: documents, association rows and sequences.
func (d *Dialect) RemoveTuple(ctx context.Context, key grid.EntityKey) error {
	if key.HasID() {
		_, err := d.db.ExecContext(ctx,
			`DELETE FROM grid_documents WHERE tbl = ? AND ref = ?`,
			key.Table(), key.IDRef(),
		)
		if err != nil {
			return fmt.Errorf("remove tuple %s: %w", key, err)
		}
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("remove tuple %s: %w", key, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM grid_documents WHERE tbl = ?`,
		`DELETE FROM grid_rows WHERE tbl = ?`,
		`DELETE FROM grid_sequences WHERE tbl = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, key.Table()); err != nil {
			return fmt.Errorf("remove tuple %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("remove tuple %s: %w", key, err)
	}
	return nil
}

func (d *Dialect) CreateTupleAssociation(associationKey grid.AssociationKey, rowKey grid.RowKey) *grid.Tuple {
	return grid.NewTupleAssociation(associationKey, rowKey)
}
