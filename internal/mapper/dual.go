package mapper

// Dual-fixture strategies split the spectrum into a warm, bass-weighted
// signal and a cool, treble-weighted signal and drive two fixtures with
// correlated but distinct colors. Each fixture keeps an independent
// envelope so its peak tracker and slew limiter run separately. With a
// single fixture they fall back to their first output.

// warmCool derives the two energy signals shared by the dual strategies.
func warmCool(in Input) (warm, cool float64) {
	warm = clamp01(in.Bass*0.8 + in.Mids*0.3)
	cool = clamp01(in.Treble*0.8 + in.Mids*0.4)
	return warm, cool
}

// dualFan replicates a two-command pattern across n fixtures: even indices
// follow the first command, odd indices the second.
func dualFan(a, b Command, n int) []Command {
	out := make([]Command, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = a
		} else {
			out[i] = b
		}
	}
	return out
}

// StereoSplitMapper sends the warm signal to the first fixture and the cool
// signal to the second.
type StereoSplitMapper struct {
	warmEnv *envelope
	coolEnv *envelope
}

// NewStereoSplitMapper returns the stereo-split dual strategy.
func NewStereoSplitMapper(opts Options) *StereoSplitMapper {
	opts = opts.withDefaults(10, 70, 0.9, 8, 4)
	return &StereoSplitMapper{warmEnv: newEnvelope(opts), coolEnv: newEnvelope(opts)}
}

func (m *StereoSplitMapper) Map(in Input) Command { return m.MapLights(in, 1)[0] }

func (m *StereoSplitMapper) MapLights(in Input, n int) []Command {
	warm, cool := warmCool(in)
	a := Command{
		R:          clampChannel(255 * warm),
		G:          clampChannel(70 * warm),
		B:          clampChannel(30 * warm),
		Brightness: m.warmEnv.brightness(warm),
	}
	b := Command{
		R:          clampChannel(30 * cool),
		G:          clampChannel(90 * cool),
		B:          clampChannel(255 * cool),
		Brightness: m.coolEnv.brightness(cool),
	}
	return dualFan(a, b, n)
}

// ComplementaryMapper colors the first fixture from the dominant band and
// the second with the complementary color, brightness driven by the warm
// and cool signals respectively.
type ComplementaryMapper struct {
	warmEnv *envelope
	coolEnv *envelope
}

// NewComplementaryMapper returns the complementary-color dual strategy.
func NewComplementaryMapper(opts Options) *ComplementaryMapper {
	opts = opts.withDefaults(15, 70, 0.9, 8, 4)
	return &ComplementaryMapper{warmEnv: newEnvelope(opts), coolEnv: newEnvelope(opts)}
}

func (m *ComplementaryMapper) Map(in Input) Command { return m.MapLights(in, 1)[0] }

func (m *ComplementaryMapper) MapLights(in Input, n int) []Command {
	dominant, intensity := dominantBand(in)
	warm, cool := warmCool(in)

	var r, g, b float64
	switch dominant {
	case 0:
		r, g, b = 255, 60, 120
	case 1:
		r, g, b = 120, 255, 60
	default:
		r, g, b = 60, 120, 255
	}

	lead := Command{
		R:          clampChannel(r * intensity),
		G:          clampChannel(g * intensity),
		B:          clampChannel(b * intensity),
		Brightness: m.warmEnv.brightness(warm),
	}
	counter := Command{
		R:          clampChannel((255 - r) * intensity),
		G:          clampChannel((255 - g) * intensity),
		B:          clampChannel((255 - b) * intensity),
		Brightness: m.coolEnv.brightness(cool),
	}
	return dualFan(lead, counter, n)
}

// LeaderFollowerMapper drives the first fixture from the live signal and the
// second from the same signal delayed by a fixed number of cycles, creating
// a trailing echo. The delay line is a fixed-capacity ring buffer.
type LeaderFollowerMapper struct {
	leadEnv   *envelope
	followEnv *envelope
	history   []Input
	next      int
	filled    bool
}

// NewLeaderFollowerMapper returns the leader/follower dual strategy.
func NewLeaderFollowerMapper(opts Options) *LeaderFollowerMapper {
	opts = opts.withDefaults(10, 70, 0.7, 15, 4)
	return &LeaderFollowerMapper{
		leadEnv:   newEnvelope(opts),
		followEnv: newEnvelope(opts),
		history:   make([]Input, opts.DelayFrames),
	}
}

func (m *LeaderFollowerMapper) Map(in Input) Command { return m.MapLights(in, 1)[0] }

func (m *LeaderFollowerMapper) MapLights(in Input, n int) []Command {
	// Oldest entry first: the slot about to be overwritten is the input
	// from DelayFrames cycles ago.
	delayed := m.history[m.next]
	if !m.filled {
		delayed = in
	}
	m.history[m.next] = in
	m.next++
	if m.next == len(m.history) {
		m.next = 0
		m.filled = true
	}

	lead := m.command(in, m.leadEnv)
	follow := m.command(delayed, m.followEnv)
	return dualFan(lead, follow, n)
}

func (m *LeaderFollowerMapper) command(in Input, env *envelope) Command {
	warm, cool := warmCool(in)
	level := clamp01(in.Amplitude)
	if level <= 0 {
		level = (warm + cool) / 2
	}
	return Command{
		R:          clampChannel(255 * warm),
		G:          clampChannel(120 * clamp01(in.Mids)),
		B:          clampChannel(255 * cool),
		Brightness: env.brightness(level),
	}
}

// FrequencyDanceMapper trades the low and high halves of the spectrum
// between the two fixtures: the first dances on bass and mids, the second on
// mids and treble, so rhythm and melody chase each other across the room.
type FrequencyDanceMapper struct {
	lowEnv  *envelope
	highEnv *envelope
}

// NewFrequencyDanceMapper returns the frequency-dance dual strategy.
func NewFrequencyDanceMapper(opts Options) *FrequencyDanceMapper {
	opts = opts.withDefaults(15, 70, 0.9, 8, 4)
	return &FrequencyDanceMapper{lowEnv: newEnvelope(opts), highEnv: newEnvelope(opts)}
}

func (m *FrequencyDanceMapper) Map(in Input) Command { return m.MapLights(in, 1)[0] }

func (m *FrequencyDanceMapper) MapLights(in Input, n int) []Command {
	low := clamp01(in.Bass*0.7 + in.Mids*0.5)
	high := clamp01(in.Mids*0.5 + in.Treble*0.7)

	a := Command{
		R:          clampChannel(255 * low),
		G:          clampChannel(160 * clamp01(in.Mids)),
		B:          clampChannel(40 * low),
		Brightness: m.lowEnv.brightness(low),
	}
	b := Command{
		R:          clampChannel(40 * high),
		G:          clampChannel(220 * high),
		B:          clampChannel(255 * clamp01(in.Treble)),
		Brightness: m.highEnv.brightness(high),
	}
	return dualFan(a, b, n)
}
