package playback

import (
	"context"
	"log"
	"time"

	"github.com/fieldtrace/replay-backend-go/internal/models"
)

// DefaultTickInterval approximates a rendering-loop callback cadence
const DefaultTickInterval = 33 * time.Millisecond

// Loop drives a Clock from a single goroutine. Commands are closures
// applied between ticks on that goroutine, so no Clock state is ever
// touched concurrently.
type Loop struct {
	clock    *Clock
	interval time.Duration
	onTick   func(models.PlaybackState)

	cmds   chan func(*Clock)
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates a loop around the clock. onTick, if non-nil, is invoked
// after every tick with the committed state.
func NewLoop(clock *Clock, interval time.Duration, onTick func(models.PlaybackState)) *Loop {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Loop{
		clock:    clock,
		interval: interval,
		onTick:   onTick,
		cmds:     make(chan func(*Clock), 16),
		done:     make(chan struct{}),
	}
}

// Start launches the tick goroutine
func (l *Loop) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go l.run(ctx)
}

// Stop cancels the scheduled ticks and waits for the loop goroutine to
// exit, leaving the clock frozen at the last committed timestamp.
func (l *Loop) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	log.Printf("[PlaybackLoop] Started (tick interval %v)", l.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[PlaybackLoop] Stopped at %d", l.clock.State().CurrentTimestamp)
			return
		case cmd := <-l.cmds:
			cmd(l.clock)
		case now := <-ticker.C:
			st := l.clock.Tick(now)
			if l.onTick != nil {
				l.onTick(st)
			}
		}
	}
}

// Do schedules fn to run on the loop goroutine between ticks. It returns
// false if the loop has already stopped.
func (l *Loop) Do(fn func(*Clock)) bool {
	select {
	case <-l.done:
		return false
	case l.cmds <- fn:
		return true
	}
}

// DoSync schedules fn like Do but waits until it has run. It returns false
// if the loop stopped before fn could execute.
func (l *Loop) DoSync(fn func(*Clock)) bool {
	ch := make(chan struct{})
	if !l.Do(func(c *Clock) {
		fn(c)
		close(ch)
	}) {
		return false
	}
	select {
	case <-ch:
		return true
	case <-l.done:
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
}

// Snapshot returns the current playback state via a command round trip
func (l *Loop) Snapshot() models.PlaybackState {
	ch := make(chan models.PlaybackState, 1)
	if !l.Do(func(c *Clock) { ch <- c.State() }) {
		return l.clock.State()
	}
	select {
	case st := <-ch:
		return st
	case <-l.done:
		return l.clock.State()
	}
}

// EventsSnapshot returns the current event markers via a command round trip
func (l *Loop) EventsSnapshot() []models.EventMarker {
	ch := make(chan []models.EventMarker, 1)
	if !l.Do(func(c *Clock) { ch <- c.Events() }) {
		return l.clock.Events()
	}
	select {
	case ev := <-ch:
		return ev
	case <-l.done:
		return l.clock.Events()
	}
}
