package pace

import (
	"sync"
	"time"
)

const (
	// DefaultFrameInterval approximates a 60Hz frame boundary.
	DefaultFrameInterval = 16 * time.Millisecond

	// DefaultFrameBudget is how much of a frame may be spent on frame
	// callbacks before idle work is deferred.
	DefaultFrameBudget = 12 * time.Millisecond

	// defaultIdleStarveLimit is the deferred-tick fallback: after this
	// many consecutive over-budget frames, idle callbacks run anyway.
	defaultIdleStarveLimit = 3
)

// Loop is a single-goroutine run loop host. Frame callbacks run on every
// tick of the frame ticker; idle callbacks run in the slack at the end of
// a frame, with a deferred-tick fallback so idle work cannot starve when
// every frame overruns its budget.
type Loop struct {
	mu     sync.Mutex
	frame  []func()
	idle   []func()
	starve int

	interval    time.Duration
	budget      time.Duration
	starveLimit int

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

func WithFrameInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

func WithFrameBudget(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.budget = d
		}
	}
}

// NewLoop builds a stopped loop; call Start to begin ticking.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		interval:    DefaultFrameInterval,
		budget:      DefaultFrameBudget,
		starveLimit: defaultIdleStarveLimit,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) OnFrame(fn func()) {
	l.mu.Lock()
	l.frame = append(l.frame, fn)
	l.mu.Unlock()
}

func (l *Loop) OnIdle(fn func()) {
	l.mu.Lock()
	l.idle = append(l.idle, fn)
	l.mu.Unlock()
}

// Start launches the loop goroutine.
func (l *Loop) Start() {
	go l.run()
}

// Stop halts the ticker and waits for the loop goroutine to exit. Pending
// callbacks are run one final time so armed lanes do not hang.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			l.tick(true)
			return
		case <-ticker.C:
			l.tick(false)
		}
	}
}

// tick runs one frame: all queued frame callbacks, then idle callbacks if
// budget remains or the starvation fallback fires. final forces both.
func (l *Loop) tick(final bool) {
	start := time.Now()

	l.mu.Lock()
	frame := l.frame
	l.frame = nil
	l.mu.Unlock()
	for _, fn := range frame {
		fn()
	}

	overBudget := time.Since(start) >= l.budget
	l.mu.Lock()
	if overBudget && l.starve < l.starveLimit && !final {
		l.starve++
		l.mu.Unlock()
		return
	}
	l.starve = 0
	idle := l.idle
	l.idle = nil
	l.mu.Unlock()
	for _, fn := range idle {
		fn()
	}
}
