package mapper

import "math"

// BandMapper maps frequency bands directly to color channels: bass to red,
// mids to green, treble to blue. A power curve compresses low values for
// more dramatic contrast.
type BandMapper struct {
	boost float64
	min   int
	curve float64
}

// NewBandMapper returns the direct band-to-channel strategy.
func NewBandMapper(opts Options) *BandMapper {
	opts = opts.withDefaults(10, 100, 1, 8, 4)
	return &BandMapper{boost: opts.BrightnessBoost, min: opts.MinBrightness, curve: 1.5}
}

func (m *BandMapper) Map(in Input) Command {
	r := clampChannel(math.Pow(clamp01(in.Bass), m.curve) * 255)
	g := clampChannel(math.Pow(clamp01(in.Mids), m.curve) * 255)
	b := clampChannel(math.Pow(clamp01(in.Treble), m.curve) * 255)

	value := in.Amplitude
	if value <= 0 {
		value = (in.Bass + in.Mids + in.Treble) / 3
	}
	return Command{R: r, G: g, B: b, Brightness: bandBrightness(m.min, value, m.boost)}
}

func (m *BandMapper) MapLights(in Input, n int) []Command { return fanOut(m, in, n) }

// EnergyMapper maps total energy to a warm palette when the track is loud
// and a cool palette when it is quiet.
type EnergyMapper struct {
	boost float64
	min   int
}

// NewEnergyMapper returns the warm/cool energy strategy.
func NewEnergyMapper(opts Options) *EnergyMapper {
	opts = opts.withDefaults(10, 100, 1, 8, 4)
	return &EnergyMapper{boost: opts.BrightnessBoost, min: opts.MinBrightness}
}

func (m *EnergyMapper) Map(in Input) Command {
	energy := clamp01((in.Bass + in.Mids + in.Treble) / 3)

	var r, g, b int
	if energy > 0.5 {
		// Warm: red with an orange tint.
		r = clampChannel(255 * energy)
		g = clampChannel(165 * energy)
		b = clampChannel(50 * (1 - energy))
	} else {
		// Cool: blue shading into purple.
		r = clampChannel(128 * energy)
		g = clampChannel(50 * energy)
		b = clampChannel(255 * (1 - energy))
	}
	return Command{R: r, G: g, B: b, Brightness: bandBrightness(m.min, energy, m.boost)}
}

func (m *EnergyMapper) MapLights(in Input, n int) []Command { return fanOut(m, in, n) }

// RainbowMapper picks the dominant band and maps it to one of three fixed
// hue pairs; intensity scales both color and brightness.
type RainbowMapper struct {
	boost float64
	min   int
}

// NewRainbowMapper returns the dominant-band rainbow strategy.
func NewRainbowMapper(opts Options) *RainbowMapper {
	opts = opts.withDefaults(10, 100, 1, 8, 4)
	return &RainbowMapper{boost: opts.BrightnessBoost, min: opts.MinBrightness}
}

func (m *RainbowMapper) Map(in Input) Command {
	dominant, intensity := dominantBand(in)

	var r, g, b int
	switch dominant {
	case 0: // bass: red/purple
		r = clampChannel(255 * intensity)
		g = clampChannel(50 * intensity)
		b = clampChannel(200 * intensity)
	case 1: // mids: green/yellow
		r = clampChannel(200 * intensity)
		g = clampChannel(255 * intensity)
		b = clampChannel(50 * intensity)
	default: // treble: cyan/blue
		r = clampChannel(50 * intensity)
		g = clampChannel(200 * intensity)
		b = clampChannel(255 * intensity)
	}
	return Command{R: r, G: g, B: b, Brightness: bandBrightness(m.min, intensity, m.boost)}
}

func (m *RainbowMapper) MapLights(in Input, n int) []Command { return fanOut(m, in, n) }

// dominantBand returns the index (0 bass, 1 mids, 2 treble) and value of the
// strongest band.
func dominantBand(in Input) (int, float64) {
	idx, val := 0, in.Bass
	if in.Mids > val {
		idx, val = 1, in.Mids
	}
	if in.Treble > val {
		idx, val = 2, in.Treble
	}
	return idx, clamp01(val)
}
