package mapper

import (
	"time"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/timeutil"
)

// GrooveMapper ("spectrum_gradient") rotates hue continuously over
// wall-clock time at a speed modulated by bass energy, so the palette
// drifts even during steady passages and surges on heavy low end. A chorus
// detector (mids plus weighted treble over a threshold) boosts brightness
// and desaturates toward white for big vocal sections. Brightness is
// asymmetrically smoothed: fast attack, slow release, giving a punchy hit
// that decays gently. With multiple fixtures each one takes a fixed hue
// offset, forming a gradient across the room.
type GrooveMapper struct {
	clock timeutil.Clock

	hue        float64
	lastUpdate time.Time
	brightness float64
	started    bool

	min, max int
}

// Groove tuning. Rotation speeds are in degrees per second; chorus values
// were dialed in against pop/rock masters on A60 bulbs.
const (
	grooveBaseSpeed       = 24.0
	grooveBassSpeed       = 140.0
	grooveChorusThreshold = 1.05
	grooveChorusBoost     = 1.5
	grooveChorusDesat     = 0.45
	grooveAttackAlpha     = 0.55
	grooveReleaseAlpha    = 0.08
	grooveFixtureOffset   = 42.0
)

// NewGrooveMapper returns the hue-rotating groove strategy.
func NewGrooveMapper(opts Options) *GrooveMapper {
	opts = opts.withDefaults(10, 100, 0.9, 8, 4)
	return &GrooveMapper{
		clock: opts.Clock,
		min:   opts.MinBrightness,
		max:   opts.MaxBrightness,
	}
}

func (m *GrooveMapper) Map(in Input) Command { return m.MapLights(in, 1)[0] }

func (m *GrooveMapper) MapLights(in Input, n int) []Command {
	now := m.clock.Now()
	if m.lastUpdate.IsZero() {
		m.lastUpdate = now
	}
	dt := now.Sub(m.lastUpdate).Seconds()
	if dt < 0 {
		dt = 0
	}
	m.lastUpdate = now

	// Continuous rotation: speed scales with bass, not with frame count,
	// so a throttled pipeline does not slow the color drift.
	m.hue += (grooveBaseSpeed + grooveBassSpeed*clamp01(in.Bass)) * dt
	for m.hue >= 360 {
		m.hue -= 360
	}

	level := clamp01(in.Amplitude)
	saturation := 1.0
	chorus := in.Mids + 0.8*in.Treble
	if chorus > grooveChorusThreshold {
		level = clamp01(level * grooveChorusBoost)
		saturation -= grooveChorusDesat
	}

	target := float64(m.min) + level*float64(m.max-m.min)
	if !m.started {
		m.started = true
		m.brightness = target
	} else if target > m.brightness {
		m.brightness += grooveAttackAlpha * (target - m.brightness)
	} else {
		m.brightness += grooveReleaseAlpha * (target - m.brightness)
	}
	brightness := clampInt(int(m.brightness), m.min, m.max)

	out := make([]Command, n)
	for i := range out {
		r, g, b := hsvToRGB(m.hue+float64(i)*grooveFixtureOffset, saturation, clamp01(0.35+0.65*level))
		out[i] = Command{R: r, G: g, B: b, Brightness: brightness}
	}
	return out
}
