package sched_test

import "github.com/delveq/domsched/sched"

// stubTarget lets tests script individual effects without a real tree.
// Unset hooks succeed silently.
type stubTarget struct {
	attached   func() bool
	onAddClass func(string) error
	onSetStyle func(string, string) error
	onSetText  func(string) error
}

func (t *stubTarget) Attached() bool {
	if t.attached != nil {
		return t.attached()
	}
	return true
}

func (t *stubTarget) AddClass(name string) error {
	if t.onAddClass != nil {
		return t.onAddClass(name)
	}
	return nil
}

func (t *stubTarget) SetStyle(name, value string) error {
	if t.onSetStyle != nil {
		return t.onSetStyle(name, value)
	}
	return nil
}

func (t *stubTarget) SetText(text string) error {
	if t.onSetText != nil {
		return t.onSetText(text)
	}
	return nil
}

func (t *stubTarget) RemoveClass(string) error       { return nil }
func (t *stubTarget) ToggleClass(string) error       { return nil }
func (t *stubTarget) RemoveStyle(string) error       { return nil }
func (t *stubTarget) SetAttr(string, string) error   { return nil }
func (t *stubTarget) RemoveAttr(string) error        { return nil }
func (t *stubTarget) SetProp(string, any) error      { return nil }
func (t *stubTarget) InsertChild(sched.Target) error { return nil }
func (t *stubTarget) Detach() error                  { return nil }
func (t *stubTarget) SetMarkup(string) error         { return nil }
