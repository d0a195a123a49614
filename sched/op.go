package sched

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

// op is one pending operation record. It is created at submission and
// released once executed, skipped, failed or cancelled.
type op struct {
	id       uint64
	target   Target
	kind     OpKind
	prio     Priority
	payload  Payload
	key      string
	keyHash  uint64
	hasKey   bool
	cond     func() bool
	callback func(bool)
	handle   *Handle
	queuedAt time.Time
}

func (o *op) setKey(key string) {
	o.key = key
	o.keyHash = xxhash.Sum64String(key)
	o.hasKey = true
}

// OpOption configures a single submission.
type OpOption func(*op)

// WithPriority selects the lane; the default is Normal.
func WithPriority(p Priority) OpOption {
	return func(o *op) {
		if int(p) < laneCount {
			o.prio = p
		}
	}
}

// WithKey attaches a dedup key. Within one drained batch only the most
// recently submitted operation per key executes; earlier ones resolve
// cancelled with ErrSuperseded.
func WithKey(key string) OpOption {
	return func(o *op) { o.setKey(key) }
}

// When attaches a guard predicate evaluated immediately before execution.
// A false return skips the operation: no mutation, handle resolves skipped.
func When(cond func() bool) OpOption {
	return func(o *op) { o.cond = cond }
}

// OnDone attaches a callback invoked synchronously with the boolean
// execution result right after the mutation is applied or skipped.
func OnDone(fn func(applied bool)) OpOption {
	return func(o *op) { o.callback = fn }
}
