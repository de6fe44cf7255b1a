package grid

import "errors"

var (
	// ErrUnsupported is returned when a dialect does not offer a capability,
	// such as a lock mode the backend has no primitive for. It is an expected
	// outcome, distinct from an empty backend result.
	ErrUnsupported = errors.New("grid: capability not supported")

	// ErrOptimisticLock is returned when a version check fails.
	ErrOptimisticLock = errors.New("grid: entity was modified concurrently")

	// ErrInvalidIncrement is returned by NextValue for a non-positive increment.
	ErrInvalidIncrement = errors.New("grid: sequence increment must be positive")
)
