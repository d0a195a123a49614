package sched

import "errors"

var (
	// ErrBadClassAction is returned through the handle when a class
	// convenience wrapper is given an action outside add/remove/toggle.
	// The operation is never queued.
	ErrBadClassAction = errors.New("unknown class action")

	// ErrSuperseded marks an operation that was replaced by a later
	// operation with the same dedup key before it could execute.
	ErrSuperseded = errors.New("superseded by later operation with same key")

	// ErrCleared marks an operation that was still queued when ClearAll
	// dropped every lane.
	ErrCleared = errors.New("scheduler cleared")

	// ErrEffectPanic wraps a panic recovered while an effect was being
	// applied to a target.
	ErrEffectPanic = errors.New("effect panicked")

	// ErrNilChild is the execution error for an insert-node operation
	// whose payload carries no child.
	ErrNilChild = errors.New("insert-node payload has no child")

	// ErrNotReadable is returned by Snapshot for targets that do not
	// implement Readable.
	ErrNotReadable = errors.New("target does not support read-back")
)
