package sched

import (
	"reflect"
	"runtime"
	"slices"
	"sync"
	"time"
)

// snapshotStyleAllowList is the fixed set of style properties a snapshot
// captures. These are the properties the scheduler's callers mutate for
// dimming/visibility work; capturing everything would turn a diagnostic
// read into a layout pass.
var snapshotStyleAllowList = []string{
	"opacity",
	"filter",
	"background-color",
	"transition",
	"visibility",
	"display",
	"z-index",
	"pointer-events",
}

// ElementSnapshot is a lazily captured copy of a target's actual observable
// state, as opposed to the shadow store's intended state.
type ElementSnapshot struct {
	Classes []string
	Styles  map[string]string
	Attrs   map[string]string
	Text    string
	Markup  string
	TakenAt time.Time
}

// snapshotCache associates snapshots with targets without extending their
// lifetime: entries are keyed by pointer identity, the target itself is
// never stored, and a finalizer on the target drops the entry once the
// target is reclaimed.
type snapshotCache struct {
	mu      sync.Mutex
	entries map[uintptr]*ElementSnapshot
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{entries: map[uintptr]*ElementSnapshot{}}
}

func (c *snapshotCache) get(key uintptr) (*ElementSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.entries[key]
	return snap, ok
}

func (c *snapshotCache) put(key uintptr, snap *ElementSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = snap
}

func (c *snapshotCache) drop(key uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *snapshotCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// identityOf returns a cache key for targets backed by a pointer. Targets
// with non-pointer dynamic types cannot be weakly associated and are not
// cached.
func identityOf(t Target) (uintptr, bool) {
	v := reflect.ValueOf(t)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return 0, false
	}
	return v.Pointer(), true
}

// Snapshot returns the target's actual observable state, capturing it on
// first request and serving the cached value afterwards until
// InvalidateSnapshot or ClearAll. The target must implement Readable.
func (s *Scheduler) Snapshot(target Target) (*ElementSnapshot, error) {
	r, ok := target.(Readable)
	if !ok {
		return nil, ErrNotReadable
	}
	key, weakable := identityOf(target)
	if !weakable {
		return s.capture(r), nil
	}
	if snap, hit := s.snaps.get(key); hit {
		return snap, nil
	}
	snap := s.capture(r)
	s.snaps.put(key, snap)
	cache := s.snaps
	runtime.SetFinalizer(target, func(any) { cache.drop(key) })
	return snap, nil
}

// InvalidateSnapshot forgets the cached snapshot for a target so the next
// Snapshot call recaptures it.
func (s *Scheduler) InvalidateSnapshot(target Target) {
	if key, ok := identityOf(target); ok {
		s.snaps.drop(key)
	}
}

func (s *Scheduler) capture(r Readable) *ElementSnapshot {
	snap := &ElementSnapshot{
		Classes: r.ClassList(),
		Styles:  map[string]string{},
		Attrs:   r.AttrMap(),
		Text:    r.Text(),
		Markup:  r.Markup(),
		TakenAt: s.clock(),
	}
	slices.Sort(snap.Classes)
	for _, prop := range snapshotStyleAllowList {
		if v, ok := r.StyleValue(prop); ok {
			snap.Styles[prop] = v
		}
	}
	return snap
}
