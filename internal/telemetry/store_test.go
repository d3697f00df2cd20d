package telemetry

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSessionID(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	assert.True(t, strings.HasPrefix(a, "ses_"))
	assert.NotEqual(t, a, b)
}

func TestSessionRoundTrip(t *testing.T) {
	store := openTestStore(t)

	started := time.Date(2026, 8, 30, 20, 0, 0, 0, time.UTC)
	sess := Session{ID: NewSessionID(), Style: "spectrum_pulse", NumLights: 3, StartedAt: started}
	require.NoError(t, store.BeginSession(sess))

	got, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "spectrum_pulse", got.Style)
	assert.Equal(t, 3, got.NumLights)
	assert.Nil(t, got.EndedAt)

	ended := started.Add(4 * time.Minute)
	require.NoError(t, store.EndSession(sess.ID, ended))

	got, err = store.GetSession(sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, ended.Unix(), got.EndedAt.Unix())
}

func TestGetSessionMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetSession("ses_nope")
	assert.Error(t, err)
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.BeginSession(Session{
			ID:        NewSessionID(),
			Style:     "energy",
			NumLights: 1,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	sessions, err := store.ListSessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.True(t, sessions[0].StartedAt.After(sessions[1].StartedAt))
	assert.True(t, sessions[1].StartedAt.After(sessions[2].StartedAt))

	limited, err := store.ListSessions(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestModeEventsAndBandSamples(t *testing.T) {
	store := openTestStore(t)

	id := NewSessionID()
	start := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.BeginSession(Session{ID: id, Style: "auto", NumLights: 2, StartedAt: start}))

	require.NoError(t, store.RecordModeEvent(ModeEvent{SessionID: id, Mode: "punchy", MeanCrest: 3.4, Timestamp: start.Add(time.Minute)}))
	require.NoError(t, store.RecordModeEvent(ModeEvent{SessionID: id, Mode: "smooth", MeanCrest: 2.1, Timestamp: start.Add(2 * time.Minute)}))

	events, err := store.ModeEvents(id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "punchy", events[0].Mode)
	assert.Equal(t, "smooth", events[1].Mode)
	assert.InDelta(t, 3.4, events[0].MeanCrest, 1e-9)

	require.NoError(t, store.RecordBandSample(BandSample{
		SessionID: id, Bass: 0.8, Mids: 0.4, Treble: 0.2, Amplitude: 0.6,
		Timestamp: start.Add(30 * time.Second),
	}))

	samples, err := store.BandSamples(id)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.InDelta(t, 0.8, samples[0].Bass, 1e-9)

	// Events from other sessions stay isolated.
	other, err := store.ModeEvents("ses_other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRecorderDrains(t *testing.T) {
	store := openTestStore(t)

	id := NewSessionID()
	require.NoError(t, store.BeginSession(Session{ID: id, Style: "pulse", NumLights: 1, StartedAt: time.Now().UTC()}))

	rec := NewRecorder(store, 8)
	for i := 0; i < 5; i++ {
		rec.BandSample(BandSample{SessionID: id, Bass: float64(i) / 10, Timestamp: time.Now().UTC()})
	}
	rec.ModeEvent(ModeEvent{SessionID: id, Mode: "punchy", MeanCrest: 3.1, Timestamp: time.Now().UTC()})
	rec.Close()

	samples, err := store.BandSamples(id)
	require.NoError(t, err)
	assert.Len(t, samples, 5)

	events, err := store.ModeEvents(id)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRecorderDropsWhenFull(t *testing.T) {
	store := openTestStore(t)
	rec := NewRecorder(store, 1)
	rec.Close()

	// A closed recorder discards silently.
	rec.BandSample(BandSample{SessionID: "ses_x"})
	assert.Zero(t, rec.Dropped())
}
