// Package autodj chooses the active mapping style from signal statistics.
// It watches the crest factor of the bass-limited waveform: spiky, punchy
// material gets the transient-oriented pulse style, compressed "wall of
// sound" material gets the flowing gradient style.
package autodj

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/audio"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/mapper"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/timeutil"
)

// Mode is the selector's state.
type Mode int

const (
	// ModeSmooth favors flowing color for dense, compressed material.
	ModeSmooth Mode = iota
	// ModePunchy favors transient-driven pulses for spiky material.
	ModePunchy
)

// String returns a human-friendly name for the mode.
func (m Mode) String() string {
	switch m {
	case ModePunchy:
		return "punchy"
	case ModeSmooth:
		return "smooth"
	default:
		return "unknown"
	}
}

// Style returns the mapper style the mode drives.
func (m Mode) Style() mapper.Style {
	if m == ModePunchy {
		return mapper.StyleSpectrumPulse
	}
	return mapper.StyleSpectrumGradient
}

// Config tunes the selector. Zero values select defaults.
type Config struct {
	Clock        timeutil.Clock
	Interval     time.Duration // minimum time between mode evaluations, default 3s
	UpperCrest   float64       // average crest above this switches to punchy, default 3.0
	LowerCrest   float64       // average crest below this switches to smooth, default 2.8
	WindowSize   int           // rolling crest window capacity, default 40
	BassCutoffHz float64       // low-pass cutoff for the crest waveform, default 150
	Initial      Mode

	// OnChange is called with the new mode and the window average that
	// triggered it. It must not block; mode changes never stall the
	// pipeline.
	OnChange func(Mode, float64)
}

// Selector is a two-state machine with a hysteresis band between the crest
// thresholds, so values wandering inside the band hold the current mode.
// Not safe for concurrent use; it runs on the producer loop.
type Selector struct {
	cfg Config

	window     []float64
	next       int
	count      int
	mode       Mode
	lastSwitch time.Time
}

// NewSelector returns a selector with defaults applied.
func NewSelector(cfg Config) *Selector {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.UpperCrest <= 0 {
		cfg.UpperCrest = 3.0
	}
	if cfg.LowerCrest <= 0 {
		cfg.LowerCrest = 2.8
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 40
	}
	if cfg.BassCutoffHz <= 0 {
		cfg.BassCutoffHz = 150
	}
	return &Selector{
		cfg:        cfg,
		window:     make([]float64, cfg.WindowSize),
		mode:       cfg.Initial,
		lastSwitch: cfg.Clock.Now(),
	}
}

// Mode returns the currently selected mode.
func (s *Selector) Mode() Mode { return s.mode }

// Observe ingests one audio frame: it records the bass-band crest factor
// and, once per interval, re-evaluates the mode against the window average.
func (s *Selector) Observe(frame []float64, sampleRate int) {
	if len(frame) == 0 {
		return
	}

	bass := audio.LowpassWaveform(frame, sampleRate, s.cfg.BassCutoffHz)
	s.push(audio.CrestFactor(bass))

	if s.cfg.Clock.Since(s.lastSwitch) < s.cfg.Interval {
		return
	}

	avg := stat.Mean(s.window[:s.count], nil)
	next := s.mode
	switch {
	case avg > s.cfg.UpperCrest:
		next = ModePunchy
	case avg < s.cfg.LowerCrest:
		next = ModeSmooth
	}
	if next == s.mode {
		return
	}

	s.mode = next
	s.lastSwitch = s.cfg.Clock.Now()
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(next, avg)
	}
}

// push appends a crest sample, evicting the oldest once the window is full.
func (s *Selector) push(crest float64) {
	s.window[s.next] = crest
	s.next = (s.next + 1) % len(s.window)
	if s.count < len(s.window) {
		s.count++
	}
}
