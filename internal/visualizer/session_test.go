package visualizer

import (
	"context"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/audio"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/dispatch"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/mapper"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/telemetry"
)

// scriptedSource plays back a fixed frame sequence, pacing reads so the
// dispatch loop keeps up, then reports EOF.
type scriptedSource struct {
	frames [][]float64
	next   int
	pace   time.Duration
}

func (s *scriptedSource) SampleRate() int { return 44100 }
func (s *scriptedSource) FrameSize() int  { return 1024 }

func (s *scriptedSource) Read(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	if s.pace > 0 {
		time.Sleep(s.pace)
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

type recordingSender struct {
	mu   sync.Mutex
	cmds []mapper.Command
}

func (r *recordingSender) Addr() string { return "test" }

func (r *recordingSender) SetColor(_ context.Context, cmd mapper.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return nil
}

func (r *recordingSender) commands() []mapper.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mapper.Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

func toneFrames(n int, amp float64) [][]float64 {
	frames := make([][]float64, n)
	for i := range frames {
		frame := make([]float64, 1024)
		for j := range frame {
			frame[j] = amp * math.Sin(2*math.Pi*60*float64(i*1024+j)/44100)
		}
		frames[i] = frame
	}
	return frames
}

func silentFrames(n int) [][]float64 {
	frames := make([][]float64, n)
	for i := range frames {
		frames[i] = make([]float64, 1024)
	}
	return frames
}

func newTestPipeline(t *testing.T, sender dispatch.Sender) *dispatch.Pipeline {
	t.Helper()
	p := dispatch.New(dispatch.Config{
		Senders:      []dispatch.Sender{sender},
		MinInterval:  time.Millisecond,
		PollInterval: time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		p.Stop()
		<-done
	})
	return p
}

func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	if cfg.Analyzer == nil {
		cfg.Analyzer = audio.NewAnalyzer(audio.Config{SampleRate: 44100})
	}
	if cfg.Mapper == nil {
		cfg.Mapper = mapper.New(mapper.StyleBands, mapper.Options{})
	}
	sess, err := New(cfg)
	require.NoError(t, err)
	return sess
}

func TestNewValidation(t *testing.T) {
	src := &scriptedSource{}
	analyzer := audio.NewAnalyzer(audio.Config{SampleRate: 44100})
	m := mapper.New(mapper.StyleBands, mapper.Options{})
	p := dispatch.New(dispatch.Config{})

	cases := []Config{
		{Analyzer: analyzer, Mapper: m, Pipeline: p},
		{Source: src, Mapper: m, Pipeline: p},
		{Source: src, Analyzer: analyzer, Pipeline: p},
		{Source: src, Analyzer: analyzer, Mapper: m},
	}
	for _, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Errorf("expected error for config %+v", cfg)
		}
	}
}

func TestSessionRunDrivesLights(t *testing.T) {
	sender := &recordingSender{}
	p := newTestPipeline(t, sender)

	sess := newTestSession(t, Config{
		Source:   &scriptedSource{frames: toneFrames(30, 0.7), pace: 2 * time.Millisecond},
		Pipeline: p,
	})

	require.NoError(t, sess.Run(context.Background()))

	require.Eventually(t, func() bool {
		return len(sender.commands()) > 0
	}, time.Second, 5*time.Millisecond)

	state := sess.State()
	assert.Equal(t, uint64(30), state.Frames)
	assert.False(t, state.Silent)
	assert.Greater(t, state.Bass, 0.0, "bass tone must register in state")

	for _, c := range sender.commands() {
		assert.GreaterOrEqual(t, c.Brightness, 0)
		assert.LessOrEqual(t, c.Brightness, 100)
	}
}

func TestSessionSilenceGating(t *testing.T) {
	sender := &recordingSender{}
	p := newTestPipeline(t, sender)

	frames := append(toneFrames(10, 0.7), silentFrames(10)...)
	sess := newTestSession(t, Config{
		Source:   &scriptedSource{frames: frames, pace: 2 * time.Millisecond},
		Pipeline: p,
	})

	require.NoError(t, sess.Run(context.Background()))

	state := sess.State()
	assert.True(t, state.Silent)
	// Silent frames do not advance the processed count.
	assert.Equal(t, uint64(10), state.Frames)

	require.Eventually(t, func() bool {
		cmds := sender.commands()
		return len(cmds) > 0 && cmds[len(cmds)-1].Brightness == 0
	}, time.Second, 5*time.Millisecond, "silence must end with a blackout command")
}

func TestSessionRecoversFromSilence(t *testing.T) {
	sender := &recordingSender{}
	p := newTestPipeline(t, sender)

	frames := append(silentFrames(5), toneFrames(10, 0.7)...)
	sess := newTestSession(t, Config{
		Source:   &scriptedSource{frames: frames, pace: 2 * time.Millisecond},
		Pipeline: p,
	})

	require.NoError(t, sess.Run(context.Background()))
	state := sess.State()
	assert.False(t, state.Silent)
	assert.Equal(t, uint64(10), state.Frames)
}

func TestSessionCanceled(t *testing.T) {
	sender := &recordingSender{}
	p := newTestPipeline(t, sender)

	sess := newTestSession(t, Config{
		Source:   &scriptedSource{frames: toneFrames(1000, 0.7), pace: time.Millisecond},
		Pipeline: p,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := sess.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionRecordsBandSamples(t *testing.T) {
	store, err := telemetry.Open(t.TempDir() + "/telemetry.db")
	require.NoError(t, err)
	defer store.Close()

	id := telemetry.NewSessionID()
	require.NoError(t, store.BeginSession(telemetry.Session{
		ID: id, Style: "frequency_bands", NumLights: 1, StartedAt: time.Now().UTC(),
	}))
	rec := telemetry.NewRecorder(store, 16)

	sender := &recordingSender{}
	p := newTestPipeline(t, sender)

	sess := newTestSession(t, Config{
		Source:         &scriptedSource{frames: toneFrames(10, 0.7), pace: 2 * time.Millisecond},
		Pipeline:       p,
		Recorder:       rec,
		SessionID:      id,
		SampleInterval: time.Nanosecond,
	})

	require.NoError(t, sess.Run(context.Background()))
	rec.Close()

	samples, err := store.BandSamples(id)
	require.NoError(t, err)
	assert.NotEmpty(t, samples)
}

func TestSetMapperAndMode(t *testing.T) {
	sender := &recordingSender{}
	p := newTestPipeline(t, sender)

	sess := newTestSession(t, Config{
		Source:   &scriptedSource{},
		Pipeline: p,
	})

	sess.SetMapper("pulse", mapper.New(mapper.StylePulse, mapper.Options{}))
	sess.SetMode("punchy")

	state := sess.State()
	assert.Equal(t, "pulse", state.Style)
	assert.Equal(t, "punchy", state.Mode)
}
