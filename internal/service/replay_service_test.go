package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/replay-backend-go/internal/database"
	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/repository"
	"github.com/fieldtrace/replay-backend-go/internal/snapcache"
	"github.com/fieldtrace/replay-backend-go/internal/spatial"
)

type noopSnapper struct{}

func (noopSnapper) SnapCoordinates(_ context.Context, coords []models.SnapCoordinate) ([]models.SnapCoordinate, error) {
	return coords, nil
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestServices(t *testing.T) (*TrackService, *ReplayService) {
	t.Helper()
	db := openTestDB(t)
	trackRepo := repository.NewTrackRepository(db)
	breakRepo := repository.NewBreakRepository(db)
	tracks := NewTrackService(trackRepo, breakRepo)

	store, err := snapcache.OpenStore(t.TempDir(), nil)
	require.NoError(t, err)
	snap := snapcache.NewService(store, noopSnapper{}, 0)

	replay := NewReplayService(tracks, breakRepo, snap)
	t.Cleanup(replay.CloseAll)
	return tracks, replay
}

// dayTrace is a slow walk with one 30 minute gap in the middle
func dayTrace() []models.GeoPoint {
	var points []models.GeoPoint
	lat, lng := 52.52, 13.405
	ts := int64(0)
	for i := 0; i < 20; i++ {
		points = append(points, models.GeoPoint{
			Latitude:  lat,
			Longitude: lng,
			Timestamp: ts,
			Source:    models.SourcePrimaryDevice,
		})
		lat, lng = spatial.DestinationPoint(lat, lng, 0, 10)
		ts += 60_000
		if i == 9 {
			ts += 30 * 60_000
		}
	}
	return points
}

func TestReplaySessionLifecycle(t *testing.T) {
	tracks, replay := newTestServices(t)
	ctx := context.Background()

	_, _, err := tracks.IngestDay("subj-1", "2026-08-20", dayTrace())
	require.NoError(t, err)

	view, err := replay.Open(ctx, "subj-1", "2026-08-20", 5)
	require.NoError(t, err)
	require.NotEmpty(t, view.ID)
	assert.Equal(t, 20, view.Points)
	assert.Equal(t, models.PhaseIdle, view.State.Phase)
	// The 30 minute pause exceeds the inactivity threshold.
	require.Len(t, view.Breaks, 1)
	assert.False(t, view.Breaks[0].Authoritative)

	state, err := replay.Command(view.ID, CommandRequest{Command: CmdPlay})
	require.NoError(t, err)
	assert.True(t, state.State.IsPlaying)

	// Let the first camera frame land, confirm it so the framing gate
	// opens, then give the clock a few wall ticks. At 5 s per simulated
	// hour they cover minutes of trajectory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, replay.ConfirmFraming(view.ID))
	time.Sleep(200 * time.Millisecond)
	state, err = replay.State(view.ID)
	require.NoError(t, err)
	assert.Greater(t, state.State.CurrentTimestamp, view.State.TrackStart)

	_, err = replay.Command(view.ID, CommandRequest{Command: CmdPause})
	require.NoError(t, err)
	state, err = replay.Command(view.ID, CommandRequest{Command: CmdSeek, Timestamp: 5 * 60_000})
	require.NoError(t, err)
	assert.Equal(t, int64(5*60_000), state.State.CurrentTimestamp)
	assert.False(t, state.State.IsPlaying)

	require.NoError(t, replay.Close(view.ID))
	_, err = replay.State(view.ID)
	assert.Error(t, err)
}

func TestReplayAuthoritativeBreaks(t *testing.T) {
	tracks, replay := newTestServices(t)
	ctx := context.Background()

	_, _, err := tracks.IngestDay("subj-1", "2026-08-20", dayTrace())
	require.NoError(t, err)

	authoritative := []models.BreakPeriod{
		{StartTime: 100_000, EndTime: 400_000, CenterLat: 52.52, CenterLng: 13.405},
	}
	require.NoError(t, tracks.SaveBreaks("subj-1", "2026-08-20", authoritative))

	view, err := replay.Open(ctx, "subj-1", "2026-08-20", 5)
	require.NoError(t, err)
	defer replay.Close(view.ID)

	// The stored list supersedes the detected gap wholesale.
	require.Len(t, view.Breaks, 1)
	assert.True(t, view.Breaks[0].Authoritative)
	assert.Equal(t, int64(100_000), view.Breaks[0].StartTime)
}

func TestReplayCommandValidation(t *testing.T) {
	tracks, replay := newTestServices(t)
	ctx := context.Background()

	_, _, err := tracks.IngestDay("subj-1", "2026-08-20", dayTrace())
	require.NoError(t, err)

	view, err := replay.Open(ctx, "subj-1", "2026-08-20", 0)
	require.NoError(t, err)
	defer replay.Close(view.ID)

	_, err = replay.Command(view.ID, CommandRequest{Command: "rewind"})
	assert.ErrorContains(t, err, "unknown command")

	_, err = replay.Command(view.ID, CommandRequest{Command: CmdFocusBreak, BreakIndex: 99})
	assert.ErrorContains(t, err, "out of range")

	_, err = replay.Command("missing", CommandRequest{Command: CmdPlay})
	assert.ErrorContains(t, err, "not found")
}

func TestReplaySnapInstallsChains(t *testing.T) {
	tracks, replay := newTestServices(t)
	ctx := context.Background()

	// Two clusters 200 m apart produce one gap segment to snap.
	lat2, lng2 := spatial.DestinationPoint(52.52, 13.405, 0, 200)
	points := []models.GeoPoint{
		{Latitude: 52.52, Longitude: 13.405, Timestamp: 1000, Source: models.SourcePrimaryDevice},
		{Latitude: lat2, Longitude: lng2, Timestamp: 60_000, Source: models.SourcePrimaryDevice},
	}
	_, _, err := tracks.IngestDay("subj-1", "2026-08-20", points)
	require.NoError(t, err)

	view, err := replay.Open(ctx, "subj-1", "2026-08-20", 5)
	require.NoError(t, err)
	defer replay.Close(view.ID)

	stats, err := replay.Snap(ctx, view.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.APICallsUsed)
	assert.Equal(t, 1, stats.SegmentCount)

	// Second snap is served from the cache.
	stats, err = replay.Snap(ctx, view.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.APICallsUsed)
}

func TestOpenUnknownDay(t *testing.T) {
	_, replay := newTestServices(t)
	_, err := replay.Open(context.Background(), "subj-1", "1999-01-01", 5)
	assert.ErrorContains(t, err, "no points stored")
}
