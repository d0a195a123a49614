// Package sched is a batched priority mutation scheduler for a live,
// mutable element tree. Callers submit small mutations (classes, styles,
// attributes, properties, node structure, text) which are queued on one of
// four priority lanes, paced against the host's frame/idle budget,
// deduplicated by key, and executed with per-operation failure isolation.
// Intended state is mirrored synchronously into a shadow store so readers
// get read-your-writes for intent without waiting for execution.
package sched

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxPerFrame bounds how many operations one pacing cycle may
	// drain from a lane; excess work is deferred to the next cycle.
	DefaultMaxPerFrame = 100

	// batchWindow is the rolling window of batch durations kept for
	// timing statistics.
	batchWindow = 100
)

type lane struct {
	ops    []*op
	armed  bool
	epoch  uint64
	cycles uint64
}

// Scheduler owns the four lanes, the shadow store, the metrics state and
// the snapshot cache. Construct one per owning context with New; there is
// no process-wide instance.
type Scheduler struct {
	mu     sync.Mutex
	lanes  [laneCount]lane
	nextID uint64

	host        Host
	clock       func() time.Time
	logger      *slog.Logger
	maxPerFrame int
	shadowed    bool

	shadow  *ShadowStore
	metrics *metricsState
	snaps   *snapshotCache
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithMaxPerFrame sets the per-cycle batch bound. Values below 1 are
// ignored.
func WithMaxPerFrame(n int) Option {
	return func(s *Scheduler) {
		if n >= 1 {
			s.maxPerFrame = n
		}
	}
}

// WithLogger attaches a structured logger. Without one the scheduler is
// silent but fully functional.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithShadowTracking toggles the shadow state store. It defaults to on.
func WithShadowTracking(enabled bool) Option {
	return func(s *Scheduler) { s.shadowed = enabled }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.clock = now
		}
	}
}

// New builds a scheduler driven by the given pacing host. A nil host
// degrades every lane to synchronous execution.
func New(host Host, opts ...Option) *Scheduler {
	s := &Scheduler{
		host:        host,
		clock:       time.Now,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxPerFrame: DefaultMaxPerFrame,
		shadowed:    true,
		shadow:      NewShadowStore(),
		snaps:       newSnapshotCache(),
	}
	s.metrics = newMetricsState()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit queues one mutation and returns its completion handle. The shadow
// store is updated synchronously before the operation is queued, so a
// reader observing shadow state right after Submit returns sees the new
// intended value even though execution is still pending.
func (s *Scheduler) Submit(target Target, kind OpKind, payload Payload, opts ...OpOption) *Handle {
	o := &op{
		target:  target,
		kind:    kind,
		payload: payload,
		prio:    Normal,
		handle:  newHandle(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.queuedAt = s.clock()

	if s.shadowed {
		s.shadow.record(target, kind, payload)
	}

	s.mu.Lock()
	s.nextID++
	o.id = s.nextID
	s.metrics.submitted++
	ln := &s.lanes[o.prio]
	ln.ops = append(ln.ops, o)
	fire, epoch := s.armLocked(o.prio)
	s.mu.Unlock()

	s.logger.Debug("operation queued",
		"id", o.id, "kind", kind.String(), "lane", o.prio.String(), "key", o.key)

	if fire {
		s.pump(o.prio, epoch)
	}
	return o.handle
}

// ClassAction names the three class mutations the class wrapper accepts.
type ClassAction string

const (
	ClassAdd    ClassAction = "add"
	ClassRemove ClassAction = "remove"
	ClassToggle ClassAction = "toggle"
)

// ApplyClass submits a keyed class mutation. The dedup key is
// "class_{action}_{name}", so repeated toggles of the same class within one
// batch window collapse to the latest. An unrecognized action fails the
// returned handle immediately and queues nothing.
func (s *Scheduler) ApplyClass(target Target, action ClassAction, name string, opts ...OpOption) *Handle {
	var kind OpKind
	switch action {
	case ClassAdd:
		kind = KindAddClass
	case ClassRemove:
		kind = KindRemoveClass
	case ClassToggle:
		kind = KindToggleClass
	default:
		return failedHandle(fmt.Errorf("%w: %q", ErrBadClassAction, action))
	}
	key := fmt.Sprintf("class_%s_%s", action, name)
	opts = append([]OpOption{WithKey(key)}, opts...)
	return s.Submit(target, kind, Payload{Name: name}, opts...)
}

// SetStyle submits a keyed set-style operation; the key "style_{property}"
// makes later writes to the same property within a batch window win.
func (s *Scheduler) SetStyle(target Target, property, value string, opts ...OpOption) *Handle {
	opts = append([]OpOption{WithKey("style_" + property)}, opts...)
	return s.Submit(target, KindSetStyle, Payload{Name: property, Value: value}, opts...)
}

// SetStyles submits one keyed operation per property in the map and
// returns the handles keyed the same way.
func (s *Scheduler) SetStyles(target Target, styles map[string]string, opts ...OpOption) map[string]*Handle {
	handles := make(map[string]*Handle, len(styles))
	for prop, val := range styles {
		handles[prop] = s.SetStyle(target, prop, val, opts...)
	}
	return handles
}

// SetAttribute submits a keyed attribute mutation, key "attr_{name}". A nil
// value selects the remove-attribute kind.
func (s *Scheduler) SetAttribute(target Target, name string, value *string, opts ...OpOption) *Handle {
	opts = append([]OpOption{WithKey("attr_" + name)}, opts...)
	if value == nil {
		return s.Submit(target, KindRemoveAttr, Payload{Name: name}, opts...)
	}
	return s.Submit(target, KindSetAttr, Payload{Name: name, Value: *value}, opts...)
}

// InsertNode submits an insert-node operation appending child to target.
func (s *Scheduler) InsertNode(target Target, child Target, opts ...OpOption) *Handle {
	return s.Submit(target, KindInsertNode, Payload{Child: child}, opts...)
}

// RemoveNode submits a remove-node operation detaching target from its
// parent.
func (s *Scheduler) RemoveNode(target Target, opts ...OpOption) *Handle {
	return s.Submit(target, KindRemoveNode, Payload{}, opts...)
}

// Shadow returns a copy of the target's shadow entry, or ok=false when no
// intent has been recorded for it. It never triggers execution.
func (s *Scheduler) Shadow(target Target) (ShadowEntry, bool) {
	return s.shadow.Read(target)
}

// ClearAll empties every lane, cancels outstanding pacing requests, and
// clears the shadow store, the snapshot cache and the metrics state.
// Operations still queued resolve cancelled with ErrCleared.
func (s *Scheduler) ClearAll() {
	s.mu.Lock()
	var dropped []*op
	for i := range s.lanes {
		ln := &s.lanes[i]
		dropped = append(dropped, ln.ops...)
		ln.ops = nil
		ln.armed = false
		ln.epoch++
		ln.cycles = 0
	}
	s.metrics.reset()
	s.mu.Unlock()

	for _, o := range dropped {
		o.handle.resolve(Result{Outcome: OutcomeCancelled, Err: ErrCleared})
	}
	s.shadow.Clear()
	s.snaps.clear()
	s.logger.Info("scheduler cleared", "dropped", len(dropped))
}

// armLocked requests pacing for a lane if none is outstanding and work is
// pending. fire is true when the caller itself must drain the lane
// synchronously (Immediate lane, or any lane with a nil host). s.mu held.
func (s *Scheduler) armLocked(p Priority) (fire bool, epoch uint64) {
	ln := &s.lanes[p]
	epoch = ln.epoch
	if ln.armed || len(ln.ops) == 0 {
		return false, epoch
	}
	ln.armed = true
	ln.cycles++
	if p == Immediate || s.host == nil {
		return true, epoch
	}
	cb := func() { s.pump(p, epoch) }
	if p == Low {
		s.host.OnIdle(cb)
	} else {
		s.host.OnFrame(cb)
	}
	return false, epoch
}

// pump drains one batch, then keeps going while the lane re-arms
// synchronously (the Immediate/nil-host path).
func (s *Scheduler) pump(p Priority, epoch uint64) {
	for s.processBatch(p, epoch) {
	}
}
