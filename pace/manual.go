// Package pace provides host pacing primitives for the scheduler: Manual
// steps frame and idle slots explicitly for deterministic tests, Loop is a
// real-time run loop with a frame ticker and end-of-frame idle slack.
package pace

import "sync"

// Manual queues frame and idle callbacks until the test steps them. No
// callback ever runs before the matching Frame or Idle call, and callbacks
// queued while a step runs wait for the next step.
type Manual struct {
	mu    sync.Mutex
	frame []func()
	idle  []func()
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) OnFrame(fn func()) {
	m.mu.Lock()
	m.frame = append(m.frame, fn)
	m.mu.Unlock()
}

func (m *Manual) OnIdle(fn func()) {
	m.mu.Lock()
	m.idle = append(m.idle, fn)
	m.mu.Unlock()
}

// Frame runs the callbacks queued before this call and returns how many
// ran.
func (m *Manual) Frame() int {
	m.mu.Lock()
	fns := m.frame
	m.frame = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Idle runs the queued idle callbacks and returns how many ran.
func (m *Manual) Idle() int {
	m.mu.Lock()
	fns := m.idle
	m.idle = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Drain alternates frame and idle steps until neither has queued work,
// returning the total number of callbacks run.
func (m *Manual) Drain() int {
	total := 0
	for {
		n := m.Frame() + m.Idle()
		if n == 0 {
			return total
		}
		total += n
	}
}
