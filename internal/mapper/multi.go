package mapper

// MultiLightMapper assigns each fixture its own band: the first gets bass
// (red/purple), the second mids (green/yellow), the third treble (cyan/blue).
// Additional fixtures cycle through channel permutations of the three bands.
type MultiLightMapper struct{}

// NewMultiLightMapper returns the per-band multi-fixture strategy.
func NewMultiLightMapper(Options) *MultiLightMapper { return &MultiLightMapper{} }

// Map reports the bass fixture's command; multi-fixture callers should use
// MapLights.
func (m *MultiLightMapper) Map(in Input) Command {
	return m.MapLights(in, 1)[0]
}

func (m *MultiLightMapper) MapLights(in Input, n int) []Command {
	bass, mids, treble := clamp01(in.Bass), clamp01(in.Mids), clamp01(in.Treble)
	out := make([]Command, 0, n)

	if n >= 1 {
		out = append(out, Command{
			R:          clampChannel(bass * 255),
			G:          clampChannel(bass * 50),
			B:          clampChannel(bass * 200),
			Brightness: clampInt(int(10+bass*90), 0, 100),
		})
	}
	if n >= 2 {
		out = append(out, Command{
			R:          clampChannel(mids * 200),
			G:          clampChannel(mids * 255),
			B:          clampChannel(mids * 50),
			Brightness: clampInt(int(10+mids*90), 0, 100),
		})
	}
	if n >= 3 {
		out = append(out, Command{
			R:          clampChannel(treble * 50),
			G:          clampChannel(treble * 200),
			B:          clampChannel(treble * 255),
			Brightness: clampInt(int(10+treble*90), 0, 100),
		})
	}

	avg := (bass + mids + treble) / 3
	for i := 3; i < n; i++ {
		var r, g, b float64
		switch i % 3 {
		case 0:
			r, g, b = bass, treble, mids
		case 1:
			r, g, b = mids, bass, treble
		default:
			r, g, b = treble, mids, bass
		}
		out = append(out, Command{
			R:          clampChannel(r * 255),
			G:          clampChannel(g * 255),
			B:          clampChannel(b * 255),
			Brightness: clampInt(int(10+avg*90), 0, 100),
		})
	}
	return out
}
