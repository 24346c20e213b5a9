package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldtrace/replay-backend-go/internal/breaks"
	"github.com/fieldtrace/replay-backend-go/internal/camera"
	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/playback"
	"github.com/fieldtrace/replay-backend-go/internal/repository"
	"github.com/fieldtrace/replay-backend-go/internal/segment"
	"github.com/fieldtrace/replay-backend-go/internal/snapcache"
)

// recordingSurface implements camera.ViewportSurface for an API consumer:
// the computed bounds are held for the client to poll and the framing-done
// callback is kept until the client confirms (or the busy timeout clears it).
type recordingSurface struct {
	mu     sync.Mutex
	bounds camera.Bounds
	seq    int64
	done   func()
}

func (r *recordingSurface) FitBounds(b camera.Bounds, _ camera.Padding, done func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bounds = b
	r.seq++
	r.done = done
}

func (r *recordingSurface) Confirm() {
	r.mu.Lock()
	done := r.done
	r.done = nil
	r.mu.Unlock()
	if done != nil {
		done()
	}
}

func (r *recordingSurface) Bounds() (camera.Bounds, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bounds, r.seq
}

// Session is one live replay of a subject's day trace
type Session struct {
	ID        string
	SubjectID string
	Date      string

	track    *models.Track
	segments []models.Segment
	driving  []models.DrivingInterval
	breaks   []models.BreakPeriod

	loop    *playback.Loop
	camera  *camera.Controller
	surface *recordingSurface

	mu       sync.Mutex
	chains   []models.SnappedChain
	position models.Position
	cancel   context.CancelFunc
}

// SessionView is the wire representation of a session's static artifacts
type SessionView struct {
	ID        string                   `json:"id"`
	SubjectID string                   `json:"subjectId"`
	Date      string                   `json:"date"`
	Signature uint64                   `json:"signature"`
	Points    int                      `json:"points"`
	Segments  []models.Segment         `json:"segments"`
	Driving   []models.DrivingInterval `json:"driving"`
	Breaks    []models.BreakPeriod     `json:"breaks"`
	State     models.PlaybackState     `json:"state"`
}

// SessionState is the wire representation of a session's live state
type SessionState struct {
	State    models.PlaybackState `json:"state"`
	Position models.Position      `json:"position"`
	Events   []models.EventMarker `json:"events,omitempty"`
	Bounds   camera.Bounds        `json:"bounds"`
	Framing  int64                `json:"framingSeq"`
}

// ReplayService owns the live replay sessions
type ReplayService struct {
	tracks    *TrackService
	breakRepo *repository.BreakRepository
	snap      *snapcache.Service

	segmenter *segment.Segmenter
	detector  *breaks.Detector
	camCfg    camera.Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewReplayService creates a replay service with default analysis settings
func NewReplayService(tracks *TrackService, breakRepo *repository.BreakRepository, snap *snapcache.Service) *ReplayService {
	return &ReplayService{
		tracks:    tracks,
		breakRepo: breakRepo,
		snap:      snap,
		segmenter: segment.NewSegmenter(segment.DefaultConfig()),
		detector:  breaks.NewDetector(breaks.DefaultInactivityThresholdMs),
		camCfg:    camera.DefaultConfig(),
		sessions:  make(map[string]*Session),
	}
}

// Open builds a session for one subject and day: the day trace is loaded,
// segmented and analyzed, and a playback loop is started paused at the
// window start.
func (s *ReplayService) Open(ctx context.Context, subjectID, date string, rateSeconds float64) (*SessionView, error) {
	track, err := s.tracks.LoadTrack(subjectID, date)
	if err != nil {
		return nil, err
	}

	primary := track.SourcePoints(models.SourcePrimaryDevice)

	detected := s.detector.Detect(track.Points)
	stored, err := s.breakRepo.GetDay(subjectID, date)
	if err != nil {
		return nil, err
	}
	resolved := breaks.Resolve(detected, stored)

	surface := &recordingSurface{}
	controller := camera.NewController(s.camCfg, surface)
	clock := playback.NewClock(track.Points, rateSeconds, controller)

	driving := s.segmenter.DrivingIntervals(primary)
	events := make([]models.EventMarker, 0, len(driving))
	for _, d := range driving {
		events = append(events, models.EventMarker{Timestamp: d.Start, Label: "driving-start"})
	}
	clock.RegisterEvents(events)

	sess := &Session{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		Date:      date,
		track:     track,
		segments:  s.segmenter.Split(track.Points),
		driving:   driving,
		breaks:    resolved,
		camera:    controller,
		surface:   surface,
	}

	sess.loop = playback.NewLoop(clock, playback.DefaultTickInterval, func(state models.PlaybackState) {
		sess.onTick(state)
	})

	loopCtx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	sess.loop.Start(loopCtx)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Printf("[Replay] Opened session %s for %s/%s (%d points, %d segments, %d breaks)",
		sess.ID, subjectID, date, len(track.Points), len(sess.segments), len(resolved))

	return s.view(sess), nil
}

func (s *ReplayService) view(sess *Session) *SessionView {
	return &SessionView{
		ID:        sess.ID,
		SubjectID: sess.SubjectID,
		Date:      sess.Date,
		Signature: sess.track.Signature,
		Points:    len(sess.track.Points),
		Segments:  sess.segments,
		Driving:   sess.driving,
		Breaks:    sess.breaks,
		State:     sess.loop.Snapshot(),
	}
}

// onTick runs on every playback tick: the interpolated position is updated
// and the camera gets a chance to reframe.
func (sess *Session) onTick(state models.PlaybackState) {
	sess.mu.Lock()
	chains := sess.chains
	sess.mu.Unlock()

	pos := playback.PositionAt(state.CurrentTimestamp, sess.track.Points, chains)

	sess.camera.Update(time.Now(), pos, sess.track.Points, state)

	sess.mu.Lock()
	sess.position = pos
	sess.mu.Unlock()
}

// Get returns the static view of a session
func (s *ReplayService) Get(id string) (*SessionView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// State returns the live state of a session
func (s *ReplayService) State(id string) (*SessionState, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	pos := sess.position
	sess.mu.Unlock()

	bounds, seq := sess.surface.Bounds()

	return &SessionState{
		State:    sess.loop.Snapshot(),
		Position: pos,
		Events:   sess.loop.EventsSnapshot(),
		Bounds:   bounds,
		Framing:  seq,
	}, nil
}

// Command names accepted by Command
const (
	CmdPlay       = "play"
	CmdPause      = "pause"
	CmdSeek       = "seek"
	CmdStep       = "step"
	CmdRate       = "rate"
	CmdFocusBreak = "focus-break"
	CmdClearFocus = "clear-focus"
)

// CommandRequest is one playback control command
type CommandRequest struct {
	Command    string  `json:"command" binding:"required"`
	Timestamp  int64   `json:"timestamp,omitempty"`
	Direction  int     `json:"direction,omitempty"`
	RateSecs   float64 `json:"rateSeconds,omitempty"`
	BreakIndex int     `json:"breakIndex,omitempty"`
}

// Command applies a playback control command to a session
func (s *ReplayService) Command(id string, req CommandRequest) (*SessionState, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	var cmdErr error
	ok := sess.loop.DoSync(func(c *playback.Clock) {
		now := time.Now()
		switch req.Command {
		case CmdPlay:
			c.Play(now)
		case CmdPause:
			c.Pause(models.PauseReasonNone)
		case CmdSeek:
			c.Seek(req.Timestamp, now)
		case CmdStep:
			c.Step(req.Direction)
		case CmdRate:
			c.SetRate(req.RateSecs, now)
		case CmdFocusBreak:
			if req.BreakIndex < 0 || req.BreakIndex >= len(sess.breaks) {
				cmdErr = fmt.Errorf("break index %d out of range", req.BreakIndex)
				return
			}
			c.FocusBreak(sess.breaks[req.BreakIndex], now)
		case CmdClearFocus:
			c.ClearFocus()
		default:
			cmdErr = fmt.Errorf("unknown command %q", req.Command)
		}
	})
	if !ok {
		return nil, fmt.Errorf("session %s is closed", id)
	}
	if cmdErr != nil {
		return nil, cmdErr
	}

	return s.State(id)
}

// ConfirmFraming signals that the client finished the last requested
// camera move, clearing the framing pause before its timeout.
func (s *ReplayService) ConfirmFraming(id string) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	sess.surface.Confirm()
	return nil
}

// Snap road-snaps the session's gap segments and installs the resulting
// chains into the interpolator. Superseded responses leave the session
// unchanged.
func (s *ReplayService) Snap(ctx context.Context, id, sourceFilter string) (models.SnapStats, error) {
	sess, err := s.session(id)
	if err != nil {
		return models.SnapStats{}, err
	}

	chains, err := s.snap.SnapDay(ctx, sess.SubjectID, sess.Date, sourceFilter, sess.track.Points)
	if err != nil {
		if err == snapcache.ErrSuperseded {
			return s.snap.Stats(), nil
		}
		return models.SnapStats{}, err
	}

	sess.mu.Lock()
	sess.chains = chains
	sess.mu.Unlock()

	sess.camera.ForceRecompute()

	return s.snap.Stats(), nil
}

// Close stops a session's playback loop and removes it
func (s *ReplayService) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}

	sess.loop.Stop()
	sess.cancel()
	log.Printf("[Replay] Closed session %s", id)
	return nil
}

// CloseAll stops every live session, for shutdown
func (s *ReplayService) CloseAll() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.loop.Stop()
		sess.cancel()
	}
}

func (s *ReplayService) session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return sess, nil
}
