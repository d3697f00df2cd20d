package mapper

// PulseMapper is the envelope-follower strategy: brightness follows the
// overall level normalized against a decaying peak, with gamma shaping,
// noise gating, and slew-rate limiting. Color leans warm with the band
// balance shifting the tint.
type PulseMapper struct {
	env *envelope
}

// NewPulseMapper returns the envelope-follower pulse strategy.
func NewPulseMapper(opts Options) *PulseMapper {
	opts = opts.withDefaults(10, 100, 0.9, 8, 4)
	return &PulseMapper{env: newEnvelope(opts)}
}

func (m *PulseMapper) Map(in Input) Command {
	level := clamp01(in.Amplitude)
	brightness := m.env.brightness(level)

	// Warm core that cools as treble takes over.
	r := clampChannel(200 + 55*clamp01(in.Bass))
	g := clampChannel(80 + 120*clamp01(in.Mids))
	b := clampChannel(40 + 180*clamp01(in.Treble))
	return Command{R: r, G: g, B: b, Brightness: brightness}
}

func (m *PulseMapper) MapLights(in Input, n int) []Command { return fanOut(m, in, n) }

// StrobeMapper flashes to full brightness when the instantaneous energy
// jumps well above the exponentially blended running energy, and dims hard
// otherwise. Higher sensitivity lowers the trigger threshold.
type StrobeMapper struct {
	sensitivity float64
	blend       float64
	threshold   float64
	running     float64
	started     bool
	min         int
}

// NewStrobeMapper returns the strobe strategy.
func NewStrobeMapper(opts Options) *StrobeMapper {
	opts = opts.withDefaults(5, 100, 1, 8, 4)
	return &StrobeMapper{
		sensitivity: opts.Sensitivity,
		blend:       0.2,
		threshold:   1.8,
		min:         opts.MinBrightness,
	}
}

func (m *StrobeMapper) Map(in Input) Command {
	energy := clamp01((in.Bass + in.Mids + in.Treble) / 3)
	if !m.started {
		m.started = true
		m.running = energy
	} else {
		m.running = m.blend*energy + (1-m.blend)*m.running
	}

	ratio := energy / (m.running + 1e-6)
	if ratio > m.threshold/m.sensitivity || energy > 0.7 {
		return Command{R: 255, G: 255, B: 255, Brightness: 100}
	}

	// Between flashes hold a dim colored floor so the room never goes black.
	return Command{
		R:          clampChannel(120 * energy),
		G:          clampChannel(60 * energy),
		B:          clampChannel(200 * energy),
		Brightness: m.min,
	}
}

func (m *StrobeMapper) MapLights(in Input, n int) []Command { return fanOut(m, in, n) }

// SpectrumPulseMapper picks a base hue from the dominant band, but when bass
// is weak it derives a transient signal from mids and treble; strong
// transients override the color with a bright flash tone and inject
// amplified energy. This surfaces percussive and vocal hits that bass-only
// detection misses.
type SpectrumPulseMapper struct {
	emphasis    float64
	sensitivity float64
	env         *envelope
	min         int
}

// Transient trigger tuning. weakBass marks the bass level under which the
// mids/treble path takes over; transientThreshold is the trigger level
// before sensitivity scaling.
const (
	weakBass             = 0.35
	transientThreshold   = 0.45
	transientInjectScale = 1.6
)

// NewSpectrumPulseMapper returns the spectral-pulse strategy.
func NewSpectrumPulseMapper(opts Options) *SpectrumPulseMapper {
	opts = opts.withDefaults(10, 100, 0.9, 8, 4)
	return &SpectrumPulseMapper{
		emphasis:    opts.BrightnessBoost,
		sensitivity: opts.Sensitivity,
		env:         newEnvelope(opts),
		min:         opts.MinBrightness,
	}
}

func (m *SpectrumPulseMapper) Map(in Input) Command {
	dominant, intensity := dominantBand(in)
	energy := clamp01(in.Amplitude)

	var r, g, b float64
	switch dominant {
	case 0:
		r, g, b = 255, 40, 90
	case 1:
		r, g, b = 220, 255, 40
	default:
		r, g, b = 40, 200, 255
	}

	if in.Bass < weakBass {
		transient := clamp01((in.Mids*0.7 + in.Treble*0.9) * m.sensitivity)
		if transient > transientThreshold {
			// Percussive/vocal hit: bright flash tone plus injected energy.
			r, g, b = 255, 235, 200
			intensity = 1
			energy = clamp01(transient * transientInjectScale)
		}
	}

	brightness := m.env.brightness(clamp01(energy * m.emphasis))
	return Command{
		R:          clampChannel(r * intensity),
		G:          clampChannel(g * intensity),
		B:          clampChannel(b * intensity),
		Brightness: brightness,
	}
}

func (m *SpectrumPulseMapper) MapLights(in Input, n int) []Command { return fanOut(m, in, n) }
