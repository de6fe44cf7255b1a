package grid

import "context"

// IDColumn is the column CreateTuple records the entity id under.
const IDColumn = "id"

// Dialect is the operation set a storage backend implements.
//
// Methods are called concurrently by many units of work. Each call is atomic
// from the backend's point of view; there are no cross-call transactions.
// Backend failures are returned wrapped with the operation and key.
type Dialect interface {
	// GetLockingStrategy returns a strategy for mode, or ErrUnsupported.
	GetLockingStrategy(lockable Lockable, mode LockMode) (LockingStrategy, error)

	// GetTuple loads an entity. It returns a nil tuple and nil error when no
	// record exists.
	GetTuple(ctx context.Context, key EntityKey) (*Tuple, error)

	// CreateTuple prepares storage for a new entity and returns a fresh tuple.
	// When the key carries an id it is recorded under IDColumn.
	CreateTuple(ctx context.Context, key EntityKey) (*Tuple, error)

	// UpdateTuple replaces the stored record with the tuple's merged columns.
	UpdateTuple(ctx context.Context, tuple *Tuple, key EntityKey) error

	// RemoveTuple deletes the record addressed by key. A key without an id
	// drops the whole table.
	RemoveTuple(ctx context.Context, key EntityKey) error

	// GetAssociation loads an association's rows. It returns a nil
	// association and nil error when no rows exist.
	GetAssociation(ctx context.Context, key AssociationKey) (*Association, error)

	// CreateAssociation returns a fresh, empty association.
	CreateAssociation(ctx context.Context, key AssociationKey) (*Association, error)

	// UpdateAssociation replays the association's log into the backend.
	UpdateAssociation(ctx context.Context, association *Association, key AssociationKey) error

	// RemoveAssociation releases whatever the backend holds for key. What
	// that means is backend defined.
	RemoveAssociation(ctx context.Context, key AssociationKey) error

	// CreateTupleAssociation returns a transient tuple for a row that has
	// never been written.
	CreateTupleAssociation(associationKey AssociationKey, rowKey RowKey) *Tuple

	// NextValue advances the sequence identified by key by increment and
	// stores the value before the increment in value. The first call for a
	// key seeds the sequence at initialValue.
	NextValue(ctx context.Context, key RowKey, value *IntegralValue, increment, initialValue int64) error
}

// IntegralValue receives a sequence value.
type IntegralValue struct {
	value int64
	set   bool
}

// Set stores n.
func (v *IntegralValue) Set(n int64) {
	v.value = n
	v.set = true
}

// Value returns the stored value.
func (v *IntegralValue) Value() int64 { return v.value }

// IsSet reports whether a value has been stored.
func (v *IntegralValue) IsSet() bool { return v.set }

// NewTupleAssociation returns the transient tuple every dialect hands out
// from CreateTupleAssociation.
func NewTupleAssociation(AssociationKey, RowKey) *Tuple {
	return NewTuple(EmptySnapshot)
}
