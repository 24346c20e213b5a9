package models

// PauseReason explains why playback is paused
type PauseReason string

// PauseReason constants
const (
	PauseReasonNone       PauseReason = "none"
	PauseReasonFraming    PauseReason = "framing"
	PauseReasonEventDwell PauseReason = "event-dwell"
	PauseReasonWindowEnd  PauseReason = "window-end"
)

// PlaybackPhase is the explicit playback state machine phase
type PlaybackPhase string

// PlaybackPhase constants: Idle -> Playing -> Paused(reason) -> Seeking -> Idle
const (
	PhaseIdle    PlaybackPhase = "idle"
	PhasePlaying PlaybackPhase = "playing"
	PhasePaused  PlaybackPhase = "paused"
	PhaseSeeking PlaybackPhase = "seeking"
)

// PlaybackState is the externally visible playback snapshot. It is mutated
// only by the playback clock's tick loop; trackStart <= CurrentTimestamp <=
// trackEnd holds at all times.
type PlaybackState struct {
	CurrentTimestamp int64         `json:"currentTimestamp"`
	IsPlaying        bool          `json:"isPlaying"`
	RateSeconds      float64       `json:"rateSeconds"` // real seconds per simulated hour
	PauseReason      PauseReason   `json:"pauseReason"`
	Phase            PlaybackPhase `json:"phase"`
	TrackStart       int64         `json:"trackStart"`
	TrackEnd         int64         `json:"trackEnd"`
}

// SimulatedSecondsPerWallSecond converts the rate (real seconds per
// simulated hour) into simulated seconds advanced per wall second.
func (s PlaybackState) SimulatedSecondsPerWallSecond() float64 {
	if s.RateSeconds <= 0 {
		return 0
	}
	return 3600.0 / s.RateSeconds
}

// Position is an interpolated coordinate at a trajectory instant. Heading
// is the forward azimuth in degrees (0 = north), used for the directional
// icon on sources whose render policy shows one.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Heading   float64 `json:"heading"`
	Timestamp int64   `json:"timestamp"`
}

// EventMarker is a significant-moment instant the playback clock dwells on
type EventMarker struct {
	Timestamp int64  `json:"timestamp"`
	Label     string `json:"label,omitempty"`
	Active    bool   `json:"active"`
	Dwelt     bool   `json:"dwelt"`
}
