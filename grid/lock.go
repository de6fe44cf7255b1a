package grid

import "context"

// LockMode is the lock level requested for an entity.
type LockMode int

const (
	// LockNone takes no lock.
	LockNone LockMode = iota
	// LockRead verifies the version at read time.
	LockRead
	// LockOptimistic verifies the version has not changed.
	LockOptimistic
	// LockOptimisticForceIncrement verifies the version and increments it.
	LockOptimisticForceIncrement
	// LockPessimisticRead holds a shared lock until the unit of work ends.
	LockPessimisticRead
	// LockPessimisticWrite holds an exclusive lock until the unit of work ends.
	LockPessimisticWrite
	// LockPessimisticForceIncrement holds an exclusive lock and increments
	// the version.
	LockPessimisticForceIncrement
)

func (m LockMode) String() string {
	switch m {
	case LockNone:
		return "NONE"
	case LockRead:
		return "READ"
	case LockOptimistic:
		return "OPTIMISTIC"
	case LockOptimisticForceIncrement:
		return "OPTIMISTIC_FORCE_INCREMENT"
	case LockPessimisticRead:
		return "PESSIMISTIC_READ"
	case LockPessimisticWrite:
		return "PESSIMISTIC_WRITE"
	case LockPessimisticForceIncrement:
		return "PESSIMISTIC_FORCE_INCREMENT"
	default:
		return "UNKNOWN"
	}
}

// Lockable describes the entity type a locking strategy operates on.
type Lockable struct {
	// EntityName is the entity type name, used in error messages.
	EntityName string

	// RootTable is the table holding the entity records.
	RootTable string

	// VersionColumn is the column carrying the optimistic lock version.
	VersionColumn string
}

// LockingStrategy acquires a lock on one entity instance.
type LockingStrategy interface {
	// Lock locks the entity with the given id, expecting version.
	Lock(ctx context.Context, id any, version any) error
}

// NoLock is the strategy for LockNone.
type NoLock struct{}

func (NoLock) Lock(context.Context, any, any) error { return nil }
