package mapper

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStyle(t *testing.T) {
	for _, s := range Styles() {
		parsed, err := ParseStyle(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStyle("disco_fever")
	assert.Error(t, err)
}

func TestStyleStringUnknown(t *testing.T) {
	assert.Equal(t, "unknown", Style(99).String())
}

func TestNewReturnsMapperForEveryStyle(t *testing.T) {
	for _, s := range Styles() {
		if New(s, Options{}) == nil {
			t.Errorf("New(%s) returned nil", s)
		}
	}
}

// TestCommandRanges hammers every style with random inputs and checks
// channels stay in [0,255] and brightness in [0,100].
func TestCommandRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, s := range Styles() {
		s := s
		t.Run(s.String(), func(t *testing.T) {
			m := New(s, Options{})
			for i := 0; i < 500; i++ {
				in := Input{
					Bass:      rng.Float64() * 1.5,
					Mids:      rng.Float64() * 1.5,
					Treble:    rng.Float64() * 1.5,
					Amplitude: rng.Float64() * 1.5,
					Beat:      rng.Intn(4) == 0,
				}
				for _, n := range []int{1, 2, 3, 5} {
					cmds := m.MapLights(in, n)
					require.Len(t, cmds, n)
					for _, c := range cmds {
						checkCommand(t, c)
					}
				}
			}
		})
	}
}

// TestCommandRangesDegenerate feeds NaN and out-of-range inputs; mappers
// must still emit valid commands.
func TestCommandRangesDegenerate(t *testing.T) {
	inputs := []Input{
		{},
		{Bass: math.NaN(), Mids: math.NaN(), Treble: math.NaN(), Amplitude: math.NaN()},
		{Bass: -1, Mids: -1, Treble: -1, Amplitude: -1},
		{Bass: 100, Mids: 100, Treble: 100, Amplitude: 100},
	}
	for _, s := range Styles() {
		m := New(s, Options{})
		for _, in := range inputs {
			for _, c := range m.MapLights(in, 3) {
				checkCommand(t, c)
			}
		}
	}
}

func checkCommand(t *testing.T, c Command) {
	t.Helper()
	if c.R < 0 || c.R > 255 || c.G < 0 || c.G > 255 || c.B < 0 || c.B > 255 {
		t.Fatalf("channel out of range: %+v", c)
	}
	if c.Brightness < 0 || c.Brightness > 100 {
		t.Fatalf("brightness out of range: %+v", c)
	}
}

func TestFanOutReplicates(t *testing.T) {
	m := NewBandMapper(Options{})
	in := Input{Bass: 0.8, Mids: 0.4, Treble: 0.2, Amplitude: 0.6}

	cmds := m.MapLights(in, 4)
	require.Len(t, cmds, 4)
	for _, c := range cmds[1:] {
		assert.Equal(t, cmds[0], c)
	}
}

func TestBandBrightness(t *testing.T) {
	tests := []struct {
		min   int
		value float64
		boost float64
		want  int
	}{
		{10, 0, 1.0, 10},
		{10, 1, 1.0, 100},
		{10, 0.5, 1.0, 55},
		{10, 1, 2.0, 100},
		{0, 0.5, 0.5, 22},
	}
	for _, tt := range tests {
		if got := bandBrightness(tt.min, tt.value, tt.boost); got != tt.want {
			t.Errorf("bandBrightness(%d, %f, %f) = %d, want %d", tt.min, tt.value, tt.boost, got, tt.want)
		}
	}
}

func TestEnvelopeSlewLimit(t *testing.T) {
	opts := Options{}.withDefaults(10, 100, 0.9, 8, 4)
	e := newEnvelope(opts)

	// First cycle takes the target directly.
	first := e.brightness(1.0)
	assert.Equal(t, 100, first)

	// A hard drop must be limited to maxStep per cycle.
	next := e.brightness(0)
	assert.Equal(t, first-8, next)
	assert.Equal(t, next-8, e.brightness(0))
}

func TestEnvelopeNoiseGate(t *testing.T) {
	opts := Options{}.withDefaults(10, 100, 0.9, 8, 4)
	e := newEnvelope(opts)

	e.norm(1.0) // establish the peak
	assert.Zero(t, e.norm(0.01), "level below gate fraction must report zero")
	assert.Greater(t, e.norm(0.9), 0.8)
}

func TestEnvelopePeakDecays(t *testing.T) {
	opts := Options{PeakDecay: 0.9}.withDefaults(10, 100, 0.9, 8, 4)
	e := newEnvelope(opts)

	e.norm(1.0)
	// With the peak decaying, a steady mid level normalizes ever higher.
	a := e.norm(0.5)
	var b float64
	for i := 0; i < 20; i++ {
		b = e.norm(0.5)
	}
	assert.Greater(t, b, a)
}

func TestBeatMapperFlashes(t *testing.T) {
	m := NewBeatMapper(NewBandMapper(Options{}))

	on := m.Map(Input{Bass: 0.2, Beat: true})
	assert.Equal(t, Command{R: 255, G: 255, B: 255, Brightness: 100}, on)

	off := m.Map(Input{Bass: 0.2})
	assert.NotEqual(t, on, off)

	cmds := m.MapLights(Input{Beat: true}, 3)
	for _, c := range cmds {
		assert.Equal(t, on, c)
	}
}

func TestMultiLightMapperAssignsBands(t *testing.T) {
	m := NewMultiLightMapper(Options{})
	in := Input{Bass: 1, Mids: 0, Treble: 0, Amplitude: 0.5}

	cmds := m.MapLights(in, 3)
	require.Len(t, cmds, 3)

	// The bass fixture should be the brightest with a silent top end.
	assert.Greater(t, cmds[0].Brightness, cmds[1].Brightness)
	assert.Greater(t, cmds[0].Brightness, cmds[2].Brightness)
}

func TestDualMappersDiffer(t *testing.T) {
	in := Input{Bass: 0.9, Mids: 0.3, Treble: 0.1, Amplitude: 0.7}
	for _, s := range []Style{StyleStereoSplit, StyleComplementary, StyleFrequencyDance} {
		m := New(s, Options{})
		var even, odd Command
		for i := 0; i < 10; i++ {
			cmds := m.MapLights(in, 2)
			even, odd = cmds[0], cmds[1]
		}
		if even == odd {
			t.Errorf("%s: expected distinct commands for bass-heavy input, both %+v", s, even)
		}
	}
}

func TestLeaderFollowerDelay(t *testing.T) {
	m := NewLeaderFollowerMapper(Options{DelayFrames: 4})

	quiet := Input{Amplitude: 0.05}
	loud := Input{Bass: 0.9, Amplitude: 0.9}

	for i := 0; i < 10; i++ {
		m.MapLights(quiet, 2)
	}
	cmds := m.MapLights(loud, 2)
	// The follower is still on delayed quiet input, so the leader leads.
	assert.GreaterOrEqual(t, cmds[0].Brightness, cmds[1].Brightness)
}

func TestHSVToRGB(t *testing.T) {
	r, g, b := hsvToRGB(0, 1, 1)
	assert.Equal(t, [3]int{255, 0, 0}, [3]int{r, g, b})

	r, g, b = hsvToRGB(120, 1, 1)
	assert.Equal(t, [3]int{0, 255, 0}, [3]int{r, g, b})

	r, g, b = hsvToRGB(240, 1, 1)
	assert.Equal(t, [3]int{0, 0, 255}, [3]int{r, g, b})

	// Zero saturation is grayscale.
	r, g, b = hsvToRGB(57, 0, 0.5)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}
