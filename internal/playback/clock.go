package playback

import (
	"log"
	"time"

	"github.com/fieldtrace/replay-backend-go/internal/models"
)

// FramingGate is the camera-busy flag the clock consults before advancing.
// Implementations must self-clear after the framing timeout so a renderer
// that never confirms cannot deadlock playback.
type FramingGate interface {
	Busy(now time.Time) bool
}

// DefaultRateSeconds is the default playback rate: real seconds of wall
// time per simulated hour of trajectory time.
const DefaultRateSeconds = 10.0

// DefaultDwellDuration is how long playback freezes on an event marker
const DefaultDwellDuration = time.Second

// Clock maps wall-clock time to trajectory time. All mutation happens on a
// single logical tick thread (the Loop); external async work signals back
// through the framing gate, never by concurrent writes.
type Clock struct {
	points     []models.GeoPoint
	trackStart int64
	trackEnd   int64

	state models.PlaybackState

	wallAnchor time.Time
	trajAnchor int64

	focus *models.BreakPeriod

	events     []models.EventMarker
	dwellUntil time.Time
	dwellIdx   int

	gate          FramingGate
	dwellDuration time.Duration
}

// NewClock creates a clock positioned at the start of the track
func NewClock(points []models.GeoPoint, rateSeconds float64, gate FramingGate) *Clock {
	if rateSeconds <= 0 {
		rateSeconds = DefaultRateSeconds
	}
	c := &Clock{
		points:        points,
		gate:          gate,
		dwellDuration: DefaultDwellDuration,
		dwellIdx:      -1,
	}
	if len(points) > 0 {
		c.trackStart = points[0].Timestamp
		c.trackEnd = points[len(points)-1].Timestamp
	}
	c.state = models.PlaybackState{
		CurrentTimestamp: c.trackStart,
		RateSeconds:      rateSeconds,
		PauseReason:      models.PauseReasonNone,
		Phase:            models.PhaseIdle,
		TrackStart:       c.trackStart,
		TrackEnd:         c.trackEnd,
	}
	return c
}

// State returns a copy of the playback state
func (c *Clock) State() models.PlaybackState {
	return c.state
}

// Events returns a copy of the registered event markers
func (c *Clock) Events() []models.EventMarker {
	out := make([]models.EventMarker, len(c.events))
	copy(out, c.events)
	return out
}

// RegisterEvents replaces the event markers the clock dwells on
func (c *Clock) RegisterEvents(events []models.EventMarker) {
	c.events = make([]models.EventMarker, len(events))
	copy(c.events, events)
	c.cancelDwell()
}

// Play starts playback, anchoring wall and trajectory time at now.
// A clock with no points stays idle.
func (c *Clock) Play(now time.Time) {
	if len(c.points) == 0 {
		return
	}
	if c.state.CurrentTimestamp >= c.windowEnd() {
		// restarting from the end rewinds to the window start
		c.state.CurrentTimestamp = c.windowStart()
	}
	c.wallAnchor = now
	c.trajAnchor = c.state.CurrentTimestamp
	c.state.IsPlaying = true
	c.state.PauseReason = models.PauseReasonNone
	c.state.Phase = models.PhasePlaying
}

// Pause stops playback at the last committed timestamp
func (c *Clock) Pause(reason models.PauseReason) {
	c.state.IsPlaying = false
	c.state.PauseReason = reason
	c.state.Phase = models.PhasePaused
	c.cancelDwell()
}

// Seek moves the clock to ts, clamped to the track bounds, cancelling any
// in-flight dwell. Playback continues from the new position if it was
// running.
func (c *Clock) Seek(ts int64, now time.Time) {
	if len(c.points) == 0 {
		return
	}
	c.state.Phase = models.PhaseSeeking
	c.cancelDwell()

	if ts < c.trackStart {
		ts = c.trackStart
	}
	if ts > c.trackEnd {
		ts = c.trackEnd
	}
	c.state.CurrentTimestamp = ts
	c.wallAnchor = now
	c.trajAnchor = ts
	c.state.PauseReason = models.PauseReasonNone

	if c.state.IsPlaying {
		c.state.Phase = models.PhasePlaying
	} else {
		c.state.Phase = models.PhaseIdle
	}
}

// Step pauses playback and moves to the next (+1) or previous (-1) raw
// point relative to the current timestamp.
func (c *Clock) Step(direction int) {
	if len(c.points) == 0 {
		return
	}
	cur := c.state.CurrentTimestamp
	idx := 0
	for i, p := range c.points {
		if p.Timestamp <= cur {
			idx = i
		} else {
			break
		}
	}
	if direction > 0 && idx < len(c.points)-1 {
		idx++
	} else if direction < 0 && idx > 0 {
		idx--
	}
	c.state.CurrentTimestamp = c.points[idx].Timestamp
	c.state.IsPlaying = false
	c.state.PauseReason = models.PauseReasonNone
	c.state.Phase = models.PhasePaused
	c.cancelDwell()
}

// SetRate changes the playback rate (real seconds per simulated hour),
// re-anchoring so the current position is preserved.
func (c *Clock) SetRate(rateSeconds float64, now time.Time) {
	if rateSeconds <= 0 {
		return
	}
	c.state.RateSeconds = rateSeconds
	c.wallAnchor = now
	c.trajAnchor = c.state.CurrentTimestamp
}

// FocusBreak bounds playback to [break start, break end] and seeks to the
// break start.
func (c *Clock) FocusBreak(b models.BreakPeriod, now time.Time) {
	c.focus = &b
	c.Seek(b.StartTime, now)
}

// ClearFocus removes the break-focus window
func (c *Clock) ClearFocus() {
	c.focus = nil
}

// Tick advances trajectory time for one scheduler tick. It is the only
// mutation point during playback.
func (c *Clock) Tick(now time.Time) models.PlaybackState {
	if !c.state.IsPlaying || len(c.points) == 0 {
		return c.state
	}

	// Framing pause: skip the tick entirely while the camera is busy and
	// re-anchor so framing time is not charged to trajectory progress.
	if c.gate != nil && c.gate.Busy(now) {
		c.state.PauseReason = models.PauseReasonFraming
		c.wallAnchor = now
		c.trajAnchor = c.state.CurrentTimestamp
		return c.state
	}
	if c.state.PauseReason == models.PauseReasonFraming {
		c.state.PauseReason = models.PauseReasonNone
	}

	// Event dwell in progress: hold position until the dwell expires.
	if c.dwellIdx >= 0 {
		if now.Before(c.dwellUntil) {
			return c.state
		}
		c.events[c.dwellIdx].Active = false
		c.events[c.dwellIdx].Dwelt = true
		c.dwellIdx = -1
		c.state.PauseReason = models.PauseReasonNone
		// Re-anchor so the dwell is not charged against trajectory time.
		c.wallAnchor = now
		c.trajAnchor = c.state.CurrentTimestamp
	}

	elapsed := now.Sub(c.wallAnchor).Seconds()
	target := c.trajAnchor + int64(elapsed*(3600000.0/c.state.RateSeconds))

	// The window boundary caps the tick before the event scan, so an event
	// past a focused break's end can never pull playback outside the window.
	end := c.windowEnd()
	if target > end {
		target = end
	}

	// Freeze on the earliest not-yet-dwelt event crossed by this tick.
	if idx := c.nextEventBetween(c.state.CurrentTimestamp, target); idx >= 0 {
		c.state.CurrentTimestamp = c.events[idx].Timestamp
		c.events[idx].Active = true
		c.dwellIdx = idx
		c.dwellUntil = now.Add(c.dwellDuration)
		c.state.PauseReason = models.PauseReasonEventDwell
		return c.state
	}

	if target >= end {
		c.state.CurrentTimestamp = end
		c.state.IsPlaying = false
		c.state.PauseReason = models.PauseReasonWindowEnd
		c.state.Phase = models.PhasePaused
		log.Printf("[PlaybackClock] Reached window end at %d", end)
		return c.state
	}

	c.state.CurrentTimestamp = target
	return c.state
}

// nextEventBetween returns the index of the earliest pending event with
// from < ts <= to, or -1.
func (c *Clock) nextEventBetween(from, to int64) int {
	best := -1
	for i := range c.events {
		ev := c.events[i]
		if ev.Dwelt || ev.Timestamp <= from || ev.Timestamp > to {
			continue
		}
		if best < 0 || ev.Timestamp < c.events[best].Timestamp {
			best = i
		}
	}
	return best
}

func (c *Clock) cancelDwell() {
	if c.dwellIdx >= 0 {
		c.events[c.dwellIdx].Active = false
		c.dwellIdx = -1
	}
	c.dwellUntil = time.Time{}
}

func (c *Clock) windowStart() int64 {
	if c.focus != nil && c.focus.StartTime > c.trackStart {
		return c.focus.StartTime
	}
	return c.trackStart
}

func (c *Clock) windowEnd() int64 {
	if c.focus != nil && c.focus.EndTime < c.trackEnd {
		return c.focus.EndTime
	}
	return c.trackEnd
}
