package audio

import (
	"math"
	"testing"
)

func TestLowpassWaveformRemovesHighs(t *testing.T) {
	const rate = 44100
	low := sine(60, rate, 1024, 0.5)
	high := sine(8000, rate, 1024, 0.5)
	mixed := make([]float64, 1024)
	for i := range mixed {
		mixed[i] = low[i] + high[i]
	}

	filtered := LowpassWaveform(mixed, rate, 150)

	// After filtering, the waveform should track the low component far
	// more closely than the mix did.
	var errMixed, errFiltered float64
	for i := range low {
		errMixed += (mixed[i] - low[i]) * (mixed[i] - low[i])
		errFiltered += (filtered[i] - low[i]) * (filtered[i] - low[i])
	}
	if errFiltered >= errMixed/10 {
		t.Errorf("lowpass left too much high-frequency energy: mixed err %f, filtered err %f", errMixed, errFiltered)
	}
}

func TestLowpassWaveformPreservesLows(t *testing.T) {
	const rate = 44100
	low := sine(60, rate, 1024, 0.5)

	filtered := LowpassWaveform(low, rate, 150)
	if RMS(filtered) < RMS(low)*0.8 {
		t.Errorf("lowpass attenuated in-band signal: rms %f vs %f", RMS(filtered), RMS(low))
	}
}

func TestCrestFactor(t *testing.T) {
	// A pure sine has crest factor sqrt(2).
	s := sine(100, 44100, 4410, 0.7)
	got := CrestFactor(s)
	if math.Abs(got-math.Sqrt2) > 0.05 {
		t.Errorf("CrestFactor(sine) = %f, want ~%f", got, math.Sqrt2)
	}

	// A spiky signal has a much higher crest factor.
	spiky := make([]float64, 1024)
	spiky[100] = 1.0
	if CrestFactor(spiky) < 5 {
		t.Errorf("CrestFactor(impulse) = %f, want large", CrestFactor(spiky))
	}

	if CrestFactor(nil) != 0 {
		t.Errorf("CrestFactor(nil) = %f, want 0", CrestFactor(nil))
	}
}
