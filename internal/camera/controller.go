package camera

import (
	"log"
	"sync"
	"time"

	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/spatial"
)

// Bounds is a viewport rectangle in degrees
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// Padding is the per-edge padding (pixels) passed to the rendering surface
// so on-screen panels do not cover the trajectory.
type Padding struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// ViewportSurface is the external map rendering surface. FitBounds is
// asynchronous; implementations call done when the viewport settles, and
// may silently never call it, which the controller's busy timeout absorbs.
type ViewportSurface interface {
	FitBounds(b Bounds, padding Padding, done func())
}

// Config holds the framing thresholds
type Config struct {
	MinSpanMeters        float64       // floor for the visible span per axis
	RecomputeInterval    time.Duration // minimum wall time between recomputes
	EmergencyFraction    float64       // deviation fraction of half-span that forces a recompute
	SpanDeltaFraction    float64       // minimum relative span change worth applying
	EdgeMarginFraction   float64       // farthest look-ahead point sits within this fraction of half-span
	LookaheadWallSeconds float64       // look-ahead horizon in wall seconds
	LookaheadMinPoints   int           // below this, fall back to raw index look-ahead
	LookaheadFallback    int           // raw points taken in the fallback
	BusyTimeout          time.Duration // framing confirmation timeout
	Padding              Padding
}

// DefaultConfig returns the production framing thresholds
func DefaultConfig() Config {
	return Config{
		MinSpanMeters:        100,
		RecomputeInterval:    3 * time.Second,
		EmergencyFraction:    0.60,
		SpanDeltaFraction:    0.25,
		EdgeMarginFraction:   0.30,
		LookaheadWallSeconds: 5,
		LookaheadMinPoints:   15,
		LookaheadFallback:    25,
		BusyTimeout:          800 * time.Millisecond,
		Padding:              Padding{Top: 80, Right: 40, Bottom: 120, Left: 40},
	}
}

// Controller decides viewport bounds from a look-ahead window and issues
// rate-limited framing requests. It synchronizes with the playback clock
// solely through the busy flag (the clock's FramingGate).
type Controller struct {
	mu      sync.Mutex
	cfg     Config
	surface ViewportSurface

	hasComputed   bool
	lastComputeAt time.Time
	lastCenter    models.Position
	lastLatSpan   float64 // degrees
	lastLngSpan   float64 // degrees
	forceNext     bool

	busy      bool
	busyUntil time.Time
}

// NewController creates a framing controller for the given surface
func NewController(cfg Config, surface ViewportSurface) *Controller {
	d := DefaultConfig()
	if cfg.MinSpanMeters <= 0 {
		cfg.MinSpanMeters = d.MinSpanMeters
	}
	if cfg.RecomputeInterval <= 0 {
		cfg.RecomputeInterval = d.RecomputeInterval
	}
	if cfg.EmergencyFraction <= 0 {
		cfg.EmergencyFraction = d.EmergencyFraction
	}
	if cfg.SpanDeltaFraction <= 0 {
		cfg.SpanDeltaFraction = d.SpanDeltaFraction
	}
	if cfg.EdgeMarginFraction <= 0 {
		cfg.EdgeMarginFraction = d.EdgeMarginFraction
	}
	if cfg.LookaheadWallSeconds <= 0 {
		cfg.LookaheadWallSeconds = d.LookaheadWallSeconds
	}
	if cfg.LookaheadMinPoints <= 0 {
		cfg.LookaheadMinPoints = d.LookaheadMinPoints
	}
	if cfg.LookaheadFallback <= 0 {
		cfg.LookaheadFallback = d.LookaheadFallback
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = d.BusyTimeout
	}
	return &Controller{cfg: cfg, surface: surface}
}

// Busy implements the playback clock's framing gate. The busy state
// self-clears after the timeout so a renderer that never confirms cannot
// stall playback.
func (c *Controller) Busy(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.busy {
		return false
	}
	if now.After(c.busyUntil) {
		c.busy = false
		return false
	}
	return true
}

// ForceRecompute requests an unconditional recompute on the next update
// (dataset switch, mode change).
func (c *Controller) ForceRecompute() {
	c.mu.Lock()
	c.forceNext = true
	c.mu.Unlock()
}

// Reset clears all framing history for a new dataset
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasComputed = false
	c.forceNext = false
	c.busy = false
}

// Update evaluates the framing decision for the current position. points is
// the full sorted point list; state supplies the playback rate for the
// simulated look-ahead horizon. It returns the applied bounds and whether a
// framing request was issued.
func (c *Controller) Update(now time.Time, current models.Position, points []models.GeoPoint, state models.PlaybackState) (Bounds, bool) {
	lookahead := c.lookaheadWindow(current.Timestamp, points, state)
	latSpan, lngSpan := c.requiredSpans(current, lookahead)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.shouldRecompute(now, current, latSpan, lngSpan) {
		return c.lastBounds(), false
	}

	c.hasComputed = true
	c.forceNext = false
	c.lastComputeAt = now
	c.lastCenter = current
	c.lastLatSpan = latSpan
	c.lastLngSpan = lngSpan

	bounds := c.lastBounds()

	c.busy = true
	c.busyUntil = now.Add(c.cfg.BusyTimeout)
	if c.surface != nil {
		c.surface.FitBounds(bounds, c.cfg.Padding, c.framingDone)
	}
	return bounds, true
}

// framingDone is handed to the surface as the fit confirmation callback
func (c *Controller) framingDone() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// shouldRecompute applies the precedence: emergency > forced/first >
// rate limit > span delta. Callers hold the mutex.
func (c *Controller) shouldRecompute(now time.Time, current models.Position, latSpan, lngSpan float64) bool {
	if c.hasComputed && c.emergency(current) {
		log.Printf("[CameraFraming] Emergency recompute: position approaching frame edge")
		return true
	}
	if !c.hasComputed || c.forceNext {
		return true
	}
	if now.Sub(c.lastComputeAt) < c.cfg.RecomputeInterval {
		return false
	}
	return c.spanChanged(latSpan, c.lastLatSpan) || c.spanChanged(lngSpan, c.lastLngSpan)
}

// emergency reports whether the current deviation from the last framing
// center exceeds the emergency fraction of the previously used half-span.
func (c *Controller) emergency(current models.Position) bool {
	devLat := abs(current.Latitude - c.lastCenter.Latitude)
	devLng := abs(current.Longitude - c.lastCenter.Longitude)
	return devLat > c.cfg.EmergencyFraction*c.lastLatSpan/2 ||
		devLng > c.cfg.EmergencyFraction*c.lastLngSpan/2
}

// spanChanged reports whether the new span differs from the applied one by
// at least the span-delta fraction
func (c *Controller) spanChanged(newSpan, oldSpan float64) bool {
	if oldSpan <= 0 {
		return newSpan > 0
	}
	delta := abs(newSpan-oldSpan) / oldSpan
	return delta >= c.cfg.SpanDeltaFraction
}

// lookaheadWindow collects the points within the next simulated horizon;
// when too few qualify, it falls back to the next raw points by index.
func (c *Controller) lookaheadWindow(currentTs int64, points []models.GeoPoint, state models.PlaybackState) []models.GeoPoint {
	horizonMs := int64(c.cfg.LookaheadWallSeconds * state.SimulatedSecondsPerWallSecond() * 1000)

	var inWindow []models.GeoPoint
	firstAhead := -1
	for i, p := range points {
		if p.Timestamp <= currentTs {
			continue
		}
		if firstAhead < 0 {
			firstAhead = i
		}
		if horizonMs > 0 && p.Timestamp <= currentTs+horizonMs {
			inWindow = append(inWindow, p)
		}
	}

	if len(inWindow) >= c.cfg.LookaheadMinPoints {
		return inWindow
	}
	if firstAhead < 0 {
		return nil
	}
	end := firstAhead + c.cfg.LookaheadFallback
	if end > len(points) {
		end = len(points)
	}
	return points[firstAhead:end]
}

// requiredSpans derives the visible span per axis (degrees) that keeps the
// farthest look-ahead point within the edge margin, floored at the minimum
// span.
func (c *Controller) requiredSpans(current models.Position, lookahead []models.GeoPoint) (latSpan, lngSpan float64) {
	var maxLatDiff, maxLngDiff float64
	for _, p := range lookahead {
		if d := abs(p.Latitude - current.Latitude); d > maxLatDiff {
			maxLatDiff = d
		}
		if d := abs(p.Longitude - current.Longitude); d > maxLngDiff {
			maxLngDiff = d
		}
	}

	latSpan = maxLatDiff * (1.0 / c.cfg.EdgeMarginFraction) * 2
	lngSpan = maxLngDiff * (1.0 / c.cfg.EdgeMarginFraction) * 2

	minLat := spatial.MetersToLatDegrees(c.cfg.MinSpanMeters)
	minLng := spatial.MetersToLngDegrees(c.cfg.MinSpanMeters, current.Latitude)
	if latSpan < minLat {
		latSpan = minLat
	}
	if lngSpan < minLng {
		lngSpan = minLng
	}
	return latSpan, lngSpan
}

// lastBounds builds the rectangle around the last framing center. Callers
// hold the mutex.
func (c *Controller) lastBounds() Bounds {
	return Bounds{
		MinLat: c.lastCenter.Latitude - c.lastLatSpan/2,
		MaxLat: c.lastCenter.Latitude + c.lastLatSpan/2,
		MinLng: c.lastCenter.Longitude - c.lastLngSpan/2,
		MaxLng: c.lastCenter.Longitude + c.lastLngSpan/2,
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
