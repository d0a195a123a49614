package sched_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/delveq/domsched/elemtree"
	"github.com/delveq/domsched/pace"
	"github.com/delveq/domsched/sched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T) (*elemtree.Element, *elemtree.Element) {
	t.Helper()
	root := elemtree.NewRoot()
	el := elemtree.New("div", "subject")
	require.NoError(t, root.InsertChild(el))
	return root, el
}

func result(t *testing.T, h *sched.Handle) sched.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r, err := h.Wait(ctx)
	require.NoError(t, err)
	return r
}

// should mirror intent into the shadow store before any batch runs
func TestShadowReadYourWrites(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	s.ApplyClass(el, sched.ClassAdd, "dimmed")

	entry, ok := s.Shadow(el)
	require.True(t, ok)
	assert.True(t, entry.Classes.Contains("dimmed"))
	assert.False(t, el.HasClass("dimmed"), "no batch has run yet")

	host.Frame()
	assert.True(t, el.HasClass("dimmed"))
}

// should execute unkeyed operations in submission order
func TestUnkeyedOrdering(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	var order []int
	for i := 0; i < 10; i++ {
		s.Submit(el, sched.KindSetText, sched.Payload{Value: fmt.Sprint(i)},
			sched.OnDone(func(bool) { order = append(order, i) }))
	}
	host.Frame()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
	assert.Equal(t, "9", el.Text())
}

// should collapse same-key operations to the most recent payload
func TestDedupLastWriteWins(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	first := s.SetStyle(el, "opacity", "0.5")
	second := s.SetStyle(el, "opacity", "0.8")
	host.Frame()

	r1 := result(t, first)
	assert.Equal(t, sched.OutcomeCancelled, r1.Outcome)
	assert.ErrorIs(t, r1.Err, sched.ErrSuperseded)

	r2 := result(t, second)
	assert.True(t, r2.Applied())

	v, ok := el.Style("opacity")
	require.True(t, ok)
	assert.Equal(t, "0.8", v)
	assert.Equal(t, uint64(1), s.Metrics().TotalExecuted)
}

// should place surviving keyed entries after unkeyed ones, ordered by last update
func TestDedupOrdering(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	var order []string
	tag := func(name string) sched.OpOption {
		return sched.OnDone(func(bool) { order = append(order, name) })
	}

	s.Submit(el, sched.KindSetStyle, sched.Payload{Name: "a", Value: "1"}, sched.WithKey("ka"), tag("ka"))
	s.Submit(el, sched.KindSetText, sched.Payload{Value: "plain"}, tag("unkeyed"))
	s.Submit(el, sched.KindSetStyle, sched.Payload{Name: "b", Value: "1"}, sched.WithKey("kb"), tag("kb"))
	s.Submit(el, sched.KindSetStyle, sched.Payload{Name: "a", Value: "2"}, sched.WithKey("ka"), tag("ka2"))
	host.Frame()

	assert.Equal(t, []string{"unkeyed", "kb", "ka2"}, order)
}

// should defer work beyond max-per-frame to the next pacing cycle
func TestFrameBudget(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host, sched.WithMaxPerFrame(100))

	executed := 0
	for i := 0; i < 120; i++ {
		s.Submit(el, sched.KindSetText, sched.Payload{Value: "x"},
			sched.OnDone(func(bool) { executed++ }))
	}

	host.Frame()
	assert.Equal(t, 100, executed)
	assert.Equal(t, 20, s.Metrics().Lanes[sched.Normal].Depth)

	host.Frame()
	assert.Equal(t, 120, executed)
	assert.Equal(t, 0, s.Metrics().Lanes[sched.Normal].Depth)
}

// should skip operations whose target detached before the batch ran
func TestStaleTargetSkip(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	h := s.ApplyClass(el, sched.ClassAdd, "late")
	require.NoError(t, el.Detach())
	host.Frame()

	r := result(t, h)
	assert.Equal(t, sched.OutcomeSkipped, r.Outcome)
	assert.NoError(t, r.Err)
	assert.False(t, el.HasClass("late"))
}

// should skip operations whose guard returns false
func TestGuardSkip(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	var cbResult *bool
	h := s.ApplyClass(el, sched.ClassAdd, "guarded",
		sched.When(func() bool { return false }),
		sched.OnDone(func(applied bool) { cbResult = &applied }))
	host.Frame()

	r := result(t, h)
	assert.Equal(t, sched.OutcomeSkipped, r.Outcome)
	assert.False(t, el.HasClass("guarded"))
	require.NotNil(t, cbResult)
	assert.False(t, *cbResult)
}

// should isolate one failing effect from its batch siblings
func TestFailureIsolation(t *testing.T) {
	root, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	void := elemtree.New("br", "")
	require.NoError(t, root.InsertChild(void))

	h1 := s.Submit(el, sched.KindSetText, sched.Payload{Value: "one"})
	h2 := s.Submit(void, sched.KindSetMarkup, sched.Payload{Value: "<b>boom</b>"})
	h3 := s.Submit(el, sched.KindAddClass, sched.Payload{Name: "three"})
	host.Frame()

	assert.True(t, result(t, h1).Applied())
	r2 := result(t, h2)
	assert.Equal(t, sched.OutcomeFailed, r2.Outcome)
	assert.ErrorIs(t, r2.Err, elemtree.ErrVoidElement)
	assert.True(t, result(t, h3).Applied())
	assert.True(t, el.HasClass("three"))
}

// should contain a panicking effect to its own entry
func TestPanicIsolation(t *testing.T) {
	host := pace.NewManual()
	s := sched.New(host)

	bomb := &stubTarget{onAddClass: func(string) error { panic("kaboom") }}
	calm := &stubTarget{}

	h1 := s.Submit(bomb, sched.KindAddClass, sched.Payload{Name: "x"})
	h2 := s.Submit(calm, sched.KindAddClass, sched.Payload{Name: "x"})
	host.Frame()

	r1 := result(t, h1)
	assert.Equal(t, sched.OutcomeFailed, r1.Outcome)
	assert.ErrorIs(t, r1.Err, sched.ErrEffectPanic)
	assert.True(t, result(t, h2).Applied())
}

// should run Immediate-lane operations synchronously on the submitting turn
func TestImmediateLaneRunsSynchronously(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	h := s.ApplyClass(el, sched.ClassAdd, "now", sched.WithPriority(sched.Immediate))

	assert.True(t, el.HasClass("now"))
	assert.True(t, result(t, h).Applied())
}

// should pace the Low lane on idle slots, not frames
func TestLowLaneRunsOnIdle(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	s.ApplyClass(el, sched.ClassAdd, "lazy", sched.WithPriority(sched.Low))

	host.Frame()
	assert.False(t, el.HasClass("lazy"))
	host.Idle()
	assert.True(t, el.HasClass("lazy"))
}

// should fail an unknown class action immediately without queueing
func TestUnknownClassActionFailsFast(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	h := s.ApplyClass(el, sched.ClassAction("flip"), "x")

	r := result(t, h)
	assert.Equal(t, sched.OutcomeFailed, r.Outcome)
	assert.ErrorIs(t, r.Err, sched.ErrBadClassAction)
	assert.Equal(t, uint64(0), s.Metrics().TotalOperations)
}

// should select the remove-attribute kind for a nil attribute value
func TestSetAttributeNilRemoves(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	v := "modal"
	s.SetAttribute(el, "role", &v)
	host.Frame()
	got, ok := el.Attr("role")
	require.True(t, ok)
	assert.Equal(t, "modal", got)

	s.SetAttribute(el, "role", nil)
	host.Frame()
	_, ok = el.Attr("role")
	assert.False(t, ok)
}

// should cancel queued operations on ClearAll and empty every lane
func TestClearAllCancelsQueued(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	h1 := s.ApplyClass(el, sched.ClassAdd, "a")
	h2 := s.ApplyClass(el, sched.ClassAdd, "b", sched.WithPriority(sched.Low))
	s.ClearAll()

	for _, h := range []*sched.Handle{h1, h2} {
		r := result(t, h)
		assert.Equal(t, sched.OutcomeCancelled, r.Outcome)
		assert.ErrorIs(t, r.Err, sched.ErrCleared)
	}

	// the already-armed pacing callback must be a no-op now
	host.Drain()
	assert.False(t, el.HasClass("a"))
	assert.False(t, el.HasClass("b"))

	m := s.Metrics()
	assert.Equal(t, uint64(0), m.TotalOperations)
	_, ok := s.Shadow(el)
	assert.False(t, ok)
}

// should keep working after a cleared pacing request fires late
func TestSubmitAfterClearAll(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	s.ApplyClass(el, sched.ClassAdd, "old")
	s.ClearAll()

	h := s.ApplyClass(el, sched.ClassAdd, "new")
	host.Drain()

	assert.True(t, result(t, h).Applied())
	assert.True(t, el.HasClass("new"))
	assert.False(t, el.HasClass("old"))
}

// should invoke the completion callback synchronously with the result
func TestCallbackSynchronous(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	var got *bool
	s.SetStyle(el, "opacity", "0.4", sched.OnDone(func(applied bool) { got = &applied }))
	host.Frame()

	require.NotNil(t, got)
	assert.True(t, *got)
}

// should time out Wait through the caller's context
func TestWaitHonoursContext(t *testing.T) {
	_, el := newTree(t)
	host := pace.NewManual()
	s := sched.New(host)

	h := s.ApplyClass(el, sched.ClassAdd, "never") // frame never stepped
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.Wait(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

// should degrade every lane to synchronous execution without a host
func TestNilHostRunsSynchronously(t *testing.T) {
	_, el := newTree(t)
	s := sched.New(nil)

	h := s.ApplyClass(el, sched.ClassAdd, "direct")

	assert.True(t, el.HasClass("direct"))
	assert.True(t, result(t, h).Applied())
}
