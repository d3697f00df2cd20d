// Package visualizer runs the capture-analyze-map-dispatch loop that
// turns an audio stream into light commands.
package visualizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/audio"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/autodj"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/dispatch"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/mapper"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/monitoring"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/source"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/telemetry"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/timeutil"
)

// Config wires a session together. Source, Analyzer, Mapper and Pipeline
// are required; Selector and Recorder are optional.
type Config struct {
	Source   source.Source
	Analyzer *audio.Analyzer
	Mapper   mapper.Mapper
	Pipeline *dispatch.Pipeline

	// Selector, when set, drives automatic style switching. The session
	// swaps its mapper whenever the selector changes mode.
	Selector *autodj.Selector

	Recorder  *telemetry.Recorder
	SessionID string

	NumLights int

	// SilenceThreshold is the RMS level below which the stream counts as
	// silent. On entering silence the session dims all fixtures once and
	// stops submitting until the signal returns.
	SilenceThreshold float64

	// SampleInterval is how often a band sample is recorded. Zero
	// disables sampling.
	SampleInterval time.Duration

	Clock timeutil.Clock
}

// State is a snapshot of the running session for status reporting.
type State struct {
	Style     string  `json:"style"`
	Mode      string  `json:"mode,omitempty"`
	Bass      float64 `json:"bass"`
	Mids      float64 `json:"mids"`
	Treble    float64 `json:"treble"`
	Amplitude float64 `json:"amplitude"`
	Silent    bool    `json:"silent"`
	Frames    uint64  `json:"frames"`
}

// Session owns one visualizer run.
type Session struct {
	cfg Config

	mu     sync.Mutex
	mapper mapper.Mapper
	state  State

	lastSample time.Time
}

// New validates the config and builds a session.
func New(cfg Config) (*Session, error) {
	if cfg.Source == nil {
		return nil, errors.New("visualizer: source is required")
	}
	if cfg.Analyzer == nil {
		return nil, errors.New("visualizer: analyzer is required")
	}
	if cfg.Mapper == nil {
		return nil, errors.New("visualizer: mapper is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("visualizer: pipeline is required")
	}
	if cfg.NumLights <= 0 {
		cfg.NumLights = 1
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = 0.005
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Session{cfg: cfg, mapper: cfg.Mapper}, nil
}

// SetMapper swaps the active mapper. Used for manual style changes and
// by the automatic selector.
func (s *Session) SetMapper(name string, m mapper.Mapper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapper = m
	s.state.Style = name
}

// SetMode updates the reported auto-selection mode.
func (s *Session) SetMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = mode
}

// State returns a snapshot of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run processes frames until the source ends or the context is canceled.
// A source EOF is a normal end and returns nil.
func (s *Session) Run(ctx context.Context) error {
	silent := false
	sampleRate := s.cfg.Source.SampleRate()

	for {
		frame, err := s.cfg.Source.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				monitoring.Logf("audio stream ended")
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("audio read failed: %w", err)
		}

		rms := audio.RMS(frame)
		if rms < s.cfg.SilenceThreshold {
			if !silent {
				silent = true
				s.blackout()
				monitoring.Logf("silence detected, dimming lights")
			}
			s.setSilent(true)
			continue
		}
		if silent {
			silent = false
			monitoring.Logf("signal returned")
		}

		bands := s.cfg.Analyzer.Analyze(frame)
		amp := s.cfg.Analyzer.Amplitude(frame)
		beat := s.cfg.Analyzer.DetectBeat(frame)

		if s.cfg.Selector != nil {
			s.cfg.Selector.Observe(frame, sampleRate)
		}

		in := mapper.Input{
			Bass:      bands.Bass,
			Mids:      bands.Mids,
			Treble:    bands.Treble,
			Amplitude: amp,
			Beat:      beat,
		}

		s.mu.Lock()
		cmds := s.mapper.MapLights(in, s.cfg.NumLights)
		s.state.Bass = bands.Bass
		s.state.Mids = bands.Mids
		s.state.Treble = bands.Treble
		s.state.Amplitude = amp
		s.state.Silent = false
		s.state.Frames++
		s.mu.Unlock()

		s.cfg.Pipeline.Submit(cmds)
		s.maybeSample(bands, amp)
	}
}

func (s *Session) setSilent(v bool) {
	s.mu.Lock()
	s.state.Silent = v
	s.mu.Unlock()
}

// blackout submits one minimum-brightness frame for every fixture.
func (s *Session) blackout() {
	cmds := make([]mapper.Command, s.cfg.NumLights)
	for i := range cmds {
		cmds[i] = mapper.Command{R: 0, G: 0, B: 0, Brightness: 0}
	}
	s.cfg.Pipeline.Submit(cmds)
}

func (s *Session) maybeSample(bands audio.Bands, amp float64) {
	if s.cfg.Recorder == nil || s.cfg.SampleInterval <= 0 {
		return
	}
	now := s.cfg.Clock.Now()
	if !s.lastSample.IsZero() && now.Sub(s.lastSample) < s.cfg.SampleInterval {
		return
	}
	s.lastSample = now
	s.cfg.Recorder.BandSample(telemetry.BandSample{
		SessionID: s.cfg.SessionID,
		Bass:      bands.Bass,
		Mids:      bands.Mids,
		Treble:    bands.Treble,
		Amplitude: amp,
		Timestamp: now,
	})
}
