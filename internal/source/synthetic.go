package source

import (
	"context"
	"math"
	"time"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/timeutil"
)

// SyntheticConfig shapes a generated test tone.
type SyntheticConfig struct {
	SampleRate int
	FrameSize  int
	FreqHz     float64 // 0 produces silence
	Amplitude  float64
	// Realtime paces Read to frame duration using Clock. Off by default so
	// tests can drain frames as fast as they assert.
	Realtime bool
	Clock    timeutil.Clock
}

// SyntheticSource generates a continuous sine tone, or silence when FreqHz
// is zero. It never ends.
type SyntheticSource struct {
	cfg   SyntheticConfig
	phase float64
	frame []float64
}

// NewSynthetic builds a tone generator. Defaults: 44100 Hz, 1024-sample
// frames, amplitude 0.5.
func NewSynthetic(cfg SyntheticConfig) *SyntheticSource {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 1024
	}
	if cfg.Amplitude == 0 {
		cfg.Amplitude = 0.5
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &SyntheticSource{
		cfg:   cfg,
		frame: make([]float64, cfg.FrameSize),
	}
}

func (s *SyntheticSource) SampleRate() int { return s.cfg.SampleRate }
func (s *SyntheticSource) FrameSize() int  { return s.cfg.FrameSize }

func (s *SyntheticSource) Read(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cfg.Realtime {
		d := time.Duration(float64(s.cfg.FrameSize) / float64(s.cfg.SampleRate) * float64(time.Second))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.cfg.Clock.After(d):
		}
	}
	if s.cfg.FreqHz <= 0 {
		for i := range s.frame {
			s.frame[i] = 0
		}
		return s.frame, nil
	}
	step := 2 * math.Pi * s.cfg.FreqHz / float64(s.cfg.SampleRate)
	for i := range s.frame {
		s.frame[i] = s.cfg.Amplitude * math.Sin(s.phase)
		s.phase += step
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
	return s.frame, nil
}
