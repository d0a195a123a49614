package sched

// Priority selects the lane an operation is queued on. Lower values are
// drained with tighter pacing: Immediate runs synchronously on the
// submitting goroutine, High and Normal run at the next frame boundary,
// Low runs in the host's idle slots.
type Priority uint8

const (
	Immediate Priority = iota
	High
	Normal
	Low
)

const laneCount = int(Low) + 1

func (p Priority) String() string {
	switch p {
	case Immediate:
		return "immediate"
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	}
	return "unknown"
}

// OpKind is the closed set of mutations the scheduler can apply to a
// target. Execution dispatches on it exhaustively, so adding a kind is a
// compile-time-checked change.
type OpKind uint8

const (
	KindAddClass OpKind = iota
	KindRemoveClass
	KindToggleClass
	KindSetStyle
	KindRemoveStyle
	KindSetAttr
	KindRemoveAttr
	KindSetProp
	KindInsertNode
	KindRemoveNode
	KindSetText
	KindSetMarkup
)

func (k OpKind) String() string {
	switch k {
	case KindAddClass:
		return "add-class"
	case KindRemoveClass:
		return "remove-class"
	case KindToggleClass:
		return "toggle-class"
	case KindSetStyle:
		return "set-style"
	case KindRemoveStyle:
		return "remove-style"
	case KindSetAttr:
		return "set-attribute"
	case KindRemoveAttr:
		return "remove-attribute"
	case KindSetProp:
		return "set-property"
	case KindInsertNode:
		return "insert-node"
	case KindRemoveNode:
		return "remove-node"
	case KindSetText:
		return "set-text"
	case KindSetMarkup:
		return "set-markup"
	}
	return "unknown"
}

// Payload carries the kind-specific arguments of an operation. Only the
// fields relevant to the kind are read; the rest are ignored.
type Payload struct {
	Name  string // class, style property, attribute or property name
	Value string // style/attribute value, text or markup
	Prop  any    // property value for KindSetProp
	Child Target // node for KindInsertNode
}

// Target is the mutable tree node the scheduler operates on. The scheduler
// never creates or destroys targets and never controls their lifetime; it
// only asks whether a target is still attached and applies effects to it.
// Effect methods report failure by returning an error, which the scheduler
// isolates to the single operation that triggered it.
type Target interface {
	Attached() bool

	AddClass(name string) error
	RemoveClass(name string) error
	ToggleClass(name string) error
	SetStyle(name, value string) error
	RemoveStyle(name string) error
	SetAttr(name, value string) error
	RemoveAttr(name string) error
	SetProp(name string, value any) error
	InsertChild(child Target) error
	Detach() error
	SetText(text string) error
	SetMarkup(markup string) error
}

// Readable is implemented by targets that support diagnostic read-back of
// their actual state. Snapshot requires it; the scheduler itself never
// reads a target through any other path.
type Readable interface {
	ClassList() []string
	StyleValue(name string) (string, bool)
	AttrMap() map[string]string
	Text() string
	Markup() string
}

// Host provides the two deferred pacing primitives. "Run now" needs no
// host: Immediate-lane work executes synchronously on the submitting
// goroutine. Hosts that have no real idle signal should fall back to a
// minimal deferred tick so Low-lane work cannot starve.
//
// A nil host degrades every lane to synchronous execution; that mode
// exists for wrapper-level tests only.
type Host interface {
	OnFrame(fn func())
	OnIdle(fn func())
}
