// Package elemtree is a small mutable element tree implementing
// sched.Target. It exists so the scheduler is usable and testable without
// a real rendering host: elements carry classes, styles, attributes,
// properties, children and text, and report attachment as connectivity to
// a tree root. Elements are not synchronized; confine a tree to the
// goroutine that runs the pacing host's callbacks.
package elemtree

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delveq/domsched/sched"
)

var (
	ErrEmptyName   = errors.New("empty name")
	ErrBadName     = errors.New("name contains whitespace")
	ErrForeignNode = errors.New("child is not an elemtree element")
	ErrCycle       = errors.New("insertion would create a cycle")
	ErrDetachRoot  = errors.New("cannot detach the root")
	ErrVoidElement = errors.New("void element cannot hold markup")
	ErrNilInsert   = errors.New("cannot insert nil element")
)

// voidTags cannot hold children, text or markup.
var voidTags = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true,
	"meta": true, "link": true, "source": true,
}

// Element is one node of the tree.
type Element struct {
	tag  string
	id   string
	root bool

	parent   *Element
	children []*Element

	classes mapset.Set[string]
	styles  map[string]string
	attrs   map[string]string
	props   map[string]any

	text      string
	rawMarkup string
}

// NewRoot returns an attached tree root. Everything reachable from it
// through parent links reports Attached.
func NewRoot() *Element {
	e := New("root", "")
	e.root = true
	return e
}

// New returns a detached element.
func New(tag, id string) *Element {
	return &Element{
		tag:     tag,
		id:      id,
		classes: mapset.NewThreadUnsafeSet[string](),
		styles:  map[string]string{},
		attrs:   map[string]string{},
		props:   map[string]any{},
	}
}

func (e *Element) Tag() string          { return e.tag }
func (e *Element) ID() string           { return e.id }
func (e *Element) Parent() *Element     { return e.parent }
func (e *Element) Children() []*Element { return append([]*Element(nil), e.children...) }

// Attached reports whether the element is connected to a tree root.
func (e *Element) Attached() bool {
	for n := e; n != nil; n = n.parent {
		if n.root {
			return true
		}
	}
	return false
}

func checkName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}

func (e *Element) AddClass(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	e.classes.Add(name)
	return nil
}

func (e *Element) RemoveClass(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	e.classes.Remove(name)
	return nil
}

func (e *Element) ToggleClass(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if e.classes.Contains(name) {
		e.classes.Remove(name)
	} else {
		e.classes.Add(name)
	}
	return nil
}

func (e *Element) HasClass(name string) bool { return e.classes.Contains(name) }

func (e *Element) SetStyle(name, value string) error {
	if err := checkName(name); err != nil {
		return err
	}
	e.styles[name] = value
	return nil
}

func (e *Element) RemoveStyle(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	delete(e.styles, name)
	return nil
}

// Style returns the inline style value for a property.
func (e *Element) Style(name string) (string, bool) {
	v, ok := e.styles[name]
	return v, ok
}

func (e *Element) SetAttr(name, value string) error {
	if err := checkName(name); err != nil {
		return err
	}
	e.attrs[name] = value
	return nil
}

func (e *Element) RemoveAttr(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	delete(e.attrs, name)
	return nil
}

func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *Element) SetProp(name string, value any) error {
	if err := checkName(name); err != nil {
		return err
	}
	e.props[name] = value
	return nil
}

func (e *Element) Prop(name string) (any, bool) {
	v, ok := e.props[name]
	return v, ok
}

// InsertChild appends child, detaching it from any previous parent first.
// Inserting an ancestor (or the element itself) is a cycle and fails.
func (e *Element) InsertChild(child sched.Target) error {
	if child == nil {
		return ErrNilInsert
	}
	c, ok := child.(*Element)
	if !ok {
		return ErrForeignNode
	}
	if c == nil {
		return ErrNilInsert
	}
	if voidTags[e.tag] {
		return fmt.Errorf("%w: <%s>", ErrVoidElement, e.tag)
	}
	for n := e; n != nil; n = n.parent {
		if n == c {
			return ErrCycle
		}
	}
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	c.parent = e
	e.children = append(e.children, c)
	return nil
}

// Detach removes the element from its parent. Detaching the root fails;
// detaching an already detached element is a no-op.
func (e *Element) Detach() error {
	if e.root {
		return ErrDetachRoot
	}
	if e.parent != nil {
		e.parent.removeChild(e)
		e.parent = nil
	}
	return nil
}

func (e *Element) removeChild(c *Element) {
	for i, n := range e.children {
		if n == c {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

// SetText replaces the element's content with text, dropping children and
// raw markup.
func (e *Element) SetText(text string) error {
	if voidTags[e.tag] {
		return fmt.Errorf("%w: <%s>", ErrVoidElement, e.tag)
	}
	for _, c := range e.children {
		c.parent = nil
	}
	e.children = nil
	e.rawMarkup = ""
	e.text = text
	return nil
}

// SetMarkup replaces the element's content with raw markup, dropping
// children and text. The markup is stored verbatim; no parsing happens.
func (e *Element) SetMarkup(markup string) error {
	if voidTags[e.tag] {
		return fmt.Errorf("%w: <%s>", ErrVoidElement, e.tag)
	}
	for _, c := range e.children {
		c.parent = nil
	}
	e.children = nil
	e.text = ""
	e.rawMarkup = markup
	return nil
}

// ClassList returns the active classes, unordered.
func (e *Element) ClassList() []string { return e.classes.ToSlice() }

// StyleValue implements sched.Readable over inline styles.
func (e *Element) StyleValue(name string) (string, bool) { return e.Style(name) }

// AttrMap returns a copy of the attributes.
func (e *Element) AttrMap() map[string]string {
	out := make(map[string]string, len(e.attrs))
	for k, v := range e.attrs {
		out[k] = v
	}
	return out
}

// Text returns the element's own text content.
func (e *Element) Text() string { return e.text }

// Markup renders the element's inner content: raw markup when set,
// otherwise text and recursively rendered children.
func (e *Element) Markup() string {
	if e.rawMarkup != "" {
		return e.rawMarkup
	}
	var sb strings.Builder
	sb.WriteString(e.text)
	for _, c := range e.children {
		c.render(&sb)
	}
	return sb.String()
}

func (e *Element) render(sb *strings.Builder) {
	sb.WriteByte('<')
	sb.WriteString(e.tag)
	if e.id != "" {
		fmt.Fprintf(sb, " id=%q", e.id)
	}
	if e.classes.Cardinality() > 0 {
		cs := e.classes.ToSlice()
		sort.Strings(cs)
		fmt.Fprintf(sb, " class=%q", strings.Join(cs, " "))
	}
	if len(e.attrs) > 0 {
		names := make([]string, 0, len(e.attrs))
		for k := range e.attrs {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(sb, " %s=%q", k, e.attrs[k])
		}
	}
	if voidTags[e.tag] {
		sb.WriteString("/>")
		return
	}
	sb.WriteByte('>')
	sb.WriteString(e.Markup())
	fmt.Fprintf(sb, "</%s>", e.tag)
}

// interface guards
var (
	_ sched.Target   = (*Element)(nil)
	_ sched.Readable = (*Element)(nil)
)
