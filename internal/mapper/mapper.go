// Package mapper converts analyzed audio features into color/brightness
// commands for lighting fixtures. Each strategy is a closed variant behind
// the Mapper interface, selected by Style at session configuration time, and
// carries its own private smoothing state.
package mapper

import (
	"fmt"
	"math"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/timeutil"
)

// Command is a single color/brightness instruction for one fixture.
// Channels are in [0,255] and brightness is in [0,100].
type Command struct {
	R          int `json:"r"`
	G          int `json:"g"`
	B          int `json:"b"`
	Brightness int `json:"brightness"`
}

// Input carries one cycle of analyzed audio features. Band values and
// Amplitude are normalized to [0,1]. Beat is only meaningful to beat-aware
// strategies.
type Input struct {
	Bass      float64
	Mids      float64
	Treble    float64
	Amplitude float64
	Beat      bool
}

// Mapper is the strategy contract. Map produces one command; MapLights
// produces exactly n commands, one per fixture. Single-output strategies
// replicate their command across fixtures; multi-fixture strategies compute
// correlated but distinct commands. Implementations are stateful and not
// safe for concurrent use.
type Mapper interface {
	Map(in Input) Command
	MapLights(in Input, n int) []Command
}

// Style identifies a mapping strategy.
type Style int

const (
	StyleBands Style = iota
	StyleEnergy
	StyleRainbow
	StyleMulti
	StylePulse
	StyleStrobe
	StyleSpectrumPulse
	StyleStereoSplit
	StyleComplementary
	StyleLeaderFollower
	StyleFrequencyDance
	StyleSpectrumGradient
)

var styleNames = map[Style]string{
	StyleBands:            "frequency_bands",
	StyleEnergy:           "energy",
	StyleRainbow:          "rainbow",
	StyleMulti:            "multi",
	StylePulse:            "pulse",
	StyleStrobe:           "strobe",
	StyleSpectrumPulse:    "spectrum_pulse",
	StyleStereoSplit:      "stereo_split",
	StyleComplementary:    "complementary_pulse",
	StyleLeaderFollower:   "beat_leader_follower",
	StyleFrequencyDance:   "frequency_dance",
	StyleSpectrumGradient: "spectrum_gradient",
}

// String returns the style's configuration name.
func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStyle resolves a configuration name to a Style.
func ParseStyle(name string) (Style, error) {
	for s, n := range styleNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown mapper style %q", name)
}

// Styles returns all known styles in declaration order.
func Styles() []Style {
	out := make([]Style, 0, len(styleNames))
	for s := StyleBands; s <= StyleSpectrumGradient; s++ {
		out = append(out, s)
	}
	return out
}

// Options tunes a mapper. Zero values select per-style defaults. The
// brightness scaling constants are empirically tuned for common RGB bulbs
// and are configuration, not invariants.
type Options struct {
	MinBrightness   int
	MaxBrightness   int
	BrightnessBoost float64
	Sensitivity     float64
	PeakDecay       float64
	Gamma           float64
	NoiseGate       float64
	MaxStep         float64
	DelayFrames     int
	Clock           timeutil.Clock
}

func (o Options) withDefaults(min, max int, gamma, maxStep float64, delay int) Options {
	if o.MinBrightness <= 0 {
		o.MinBrightness = min
	}
	if o.MaxBrightness <= 0 {
		o.MaxBrightness = max
	}
	if o.BrightnessBoost <= 0 {
		o.BrightnessBoost = 1.5
	}
	if o.Sensitivity <= 0 {
		o.Sensitivity = 1.0
	}
	if o.PeakDecay <= 0 {
		o.PeakDecay = 0.985
	}
	if o.Gamma <= 0 {
		o.Gamma = gamma
	}
	if o.NoiseGate <= 0 {
		o.NoiseGate = 0.05
	}
	if o.MaxStep <= 0 {
		o.MaxStep = maxStep
	}
	if o.DelayFrames <= 0 {
		o.DelayFrames = delay
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	return o
}

// New constructs the mapper for style with the given options.
func New(style Style, opts Options) Mapper {
	switch style {
	case StyleEnergy:
		return NewEnergyMapper(opts)
	case StyleRainbow:
		return NewRainbowMapper(opts)
	case StyleMulti:
		return NewMultiLightMapper(opts)
	case StylePulse:
		return NewPulseMapper(opts)
	case StyleStrobe:
		return NewStrobeMapper(opts)
	case StyleSpectrumPulse:
		return NewSpectrumPulseMapper(opts)
	case StyleStereoSplit:
		return NewStereoSplitMapper(opts)
	case StyleComplementary:
		return NewComplementaryMapper(opts)
	case StyleLeaderFollower:
		return NewLeaderFollowerMapper(opts)
	case StyleFrequencyDance:
		return NewFrequencyDanceMapper(opts)
	case StyleSpectrumGradient:
		return NewGrooveMapper(opts)
	default:
		return NewBandMapper(opts)
	}
}

// fanOut implements MapLights for single-output strategies by replicating
// the command across fixtures.
func fanOut(m interface{ Map(Input) Command }, in Input, n int) []Command {
	cmd := m.Map(in)
	out := make([]Command, n)
	for i := range out {
		out[i] = cmd
	}
	return out
}

func clampChannel(v float64) int {
	return clampInt(int(v), 0, 255)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// bandBrightness implements the shared brightness law: min plus the scaled
// value, clamped to [0,100]. The ×90 span is a fixture-tuned default.
func bandBrightness(min int, value, boost float64) int {
	return clampInt(int(float64(min)+value*90*boost), 0, 100)
}
