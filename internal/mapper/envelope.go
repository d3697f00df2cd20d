package mapper

import "math"

// envelope tracks a decaying peak and converts a level into a gamma-shaped,
// slew-limited brightness. Every pulse-family strategy owns one envelope per
// fixture so peaks decay independently.
type envelope struct {
	peak     float64
	prev     float64
	started  bool
	decay    float64
	gamma    float64
	gate     float64
	maxStep  float64
	min, max int
}

func newEnvelope(opts Options) *envelope {
	return &envelope{
		decay:   opts.PeakDecay,
		gamma:   opts.Gamma,
		gate:    opts.NoiseGate,
		maxStep: opts.MaxStep,
		min:     opts.MinBrightness,
		max:     opts.MaxBrightness,
	}
}

// norm normalizes level against the decaying peak and applies the gamma
// curve. Levels below the noise gate report zero so residual hiss does not
// keep the lights glowing.
func (e *envelope) norm(level float64) float64 {
	e.peak = math.Max(level, e.peak*e.decay)
	if e.peak <= 1e-9 {
		return 0
	}
	if level < e.gate*e.peak {
		return 0
	}
	return math.Pow(clamp01(level/e.peak), e.gamma)
}

// brightness maps level into [min,max], limiting the per-cycle change to
// maxStep to avoid visible flicker.
func (e *envelope) brightness(level float64) int {
	target := float64(e.min) + e.norm(level)*float64(e.max-e.min)
	if !e.started {
		e.started = true
		e.prev = target
	} else {
		if target > e.prev+e.maxStep {
			target = e.prev + e.maxStep
		} else if target < e.prev-e.maxStep {
			target = e.prev - e.maxStep
		}
		e.prev = target
	}
	return clampInt(int(math.Round(target)), e.min, e.max)
}
