package sched

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// ShadowEntry is the per-target record of the last intended class, style,
// attribute and property values. It reflects the most recently submitted
// intent for each slot regardless of whether that submission has executed
// yet: read-your-writes for intent, not for effect.
type ShadowEntry struct {
	Classes mapset.Set[string]
	Styles  map[string]string
	Attrs   map[string]string
	Props   map[string]any
}

func newShadowEntry() *ShadowEntry {
	return &ShadowEntry{
		Classes: mapset.NewSet[string](),
		Styles:  map[string]string{},
		Attrs:   map[string]string{},
		Props:   map[string]any{},
	}
}

func (e *ShadowEntry) clone() ShadowEntry {
	out := ShadowEntry{
		Classes: e.Classes.Clone(),
		Styles:  make(map[string]string, len(e.Styles)),
		Attrs:   make(map[string]string, len(e.Attrs)),
		Props:   make(map[string]any, len(e.Props)),
	}
	for k, v := range e.Styles {
		out.Styles[k] = v
	}
	for k, v := range e.Attrs {
		out.Attrs[k] = v
	}
	for k, v := range e.Props {
		out.Props[k] = v
	}
	return out
}

// ShadowStore tracks intended state per target. It is updated at
// submission time and read from any goroutine; reads never trigger
// execution and never touch the target itself.
type ShadowStore struct {
	mu      sync.RWMutex
	entries map[Target]*ShadowEntry
}

func NewShadowStore() *ShadowStore {
	return &ShadowStore{entries: map[Target]*ShadowEntry{}}
}

// record folds one submission into the target's entry. Node structure,
// text and markup kinds do not participate in shadow tracking.
func (st *ShadowStore) record(t Target, kind OpKind, p Payload) {
	if t == nil {
		return
	}
	switch kind {
	case KindInsertNode, KindRemoveNode, KindSetText, KindSetMarkup:
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.entries[t]
	if !ok {
		e = newShadowEntry()
		st.entries[t] = e
	}
	switch kind {
	case KindAddClass:
		e.Classes.Add(p.Name)
	case KindRemoveClass:
		e.Classes.Remove(p.Name)
	case KindToggleClass:
		if e.Classes.Contains(p.Name) {
			e.Classes.Remove(p.Name)
		} else {
			e.Classes.Add(p.Name)
		}
	case KindSetStyle:
		e.Styles[p.Name] = p.Value
	case KindRemoveStyle:
		delete(e.Styles, p.Name)
	case KindSetAttr:
		e.Attrs[p.Name] = p.Value
	case KindRemoveAttr:
		delete(e.Attrs, p.Name)
	case KindSetProp:
		e.Props[p.Name] = p.Prop
	}
}

// Read returns a copy of the target's entry, or ok=false when no intent
// has been recorded for it.
func (st *ShadowStore) Read(t Target) (ShadowEntry, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	e, ok := st.entries[t]
	if !ok {
		return ShadowEntry{}, false
	}
	return e.clone(), true
}

// Clear drops every entry.
func (st *ShadowStore) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	clear(st.entries)
}
