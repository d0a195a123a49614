package pace_test

import (
	"testing"

	"github.com/delveq/domsched/pace"
	"github.com/stretchr/testify/assert"
)

// should never run a callback before its step
func TestManualStepping(t *testing.T) {
	m := pace.NewManual()
	ran := []string{}

	m.OnFrame(func() { ran = append(ran, "frame") })
	m.OnIdle(func() { ran = append(ran, "idle") })
	assert.Empty(t, ran)

	assert.Equal(t, 1, m.Frame())
	assert.Equal(t, []string{"frame"}, ran)
	assert.Equal(t, 1, m.Idle())
	assert.Equal(t, []string{"frame", "idle"}, ran)
}

// should defer callbacks queued during a step to the next step
func TestManualRequeueDuringStep(t *testing.T) {
	m := pace.NewManual()
	count := 0
	m.OnFrame(func() {
		count++
		if count < 3 {
			m.OnFrame(func() { count++ })
		}
	})

	assert.Equal(t, 1, m.Frame())
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, m.Frame())
	assert.Equal(t, 2, count)
}

// should drain alternating frame and idle work to quiescence
func TestManualDrain(t *testing.T) {
	m := pace.NewManual()
	m.OnFrame(func() {
		m.OnIdle(func() {})
	})
	assert.Equal(t, 2, m.Drain())
	assert.Equal(t, 0, m.Drain())
}
