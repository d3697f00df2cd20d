package mapper

// BeatMapper wraps another strategy and overrides its output with a full
// white flash on cycles where a beat was detected.
type BeatMapper struct {
	base Mapper
}

// NewBeatMapper wraps base with beat flashing.
func NewBeatMapper(base Mapper) *BeatMapper {
	return &BeatMapper{base: base}
}

func (m *BeatMapper) Map(in Input) Command {
	if in.Beat {
		return Command{R: 255, G: 255, B: 255, Brightness: 100}
	}
	return m.base.Map(in)
}

func (m *BeatMapper) MapLights(in Input, n int) []Command {
	if in.Beat {
		flash := Command{R: 255, G: 255, B: 255, Brightness: 100}
		out := make([]Command, n)
		for i := range out {
			out[i] = flash
		}
		return out
	}
	return m.base.MapLights(in, n)
}
