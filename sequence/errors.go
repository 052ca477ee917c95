package sequence

import "errors"

var (
	// ErrInvalidParent reports a quote or job allocation against a lead whose
	// number cannot be parsed. The caller broke the contract; nothing is written.
	ErrInvalidParent = errors.New("invalid parent lead number")

	// ErrNumberTaken is returned by a Store insert when the uniqueness
	// constraint on the number column rejects the row. Allocate treats it as
	// ordinary contention and retries with a freshly recomputed max.
	ErrNumberTaken = errors.New("number already taken")

	// ErrCollision reports that the bounded retry budget was exhausted without
	// a unique insert. Persistent collision indicates a consistency bug, not
	// contention, so it surfaces as a hard failure instead of retrying forever.
	ErrCollision = errors.New("duplicate number collision persisted after retries")
)
