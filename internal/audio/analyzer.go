// Package audio extracts frequency-band energies, amplitude, and beat
// information from raw sample buffers for downstream light mapping.
package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Band edges in Hz. Bass covers kick drums and bass guitar, mids cover
// vocals and most instruments, treble covers cymbals and hi-hats.
const (
	BassLowHz    = 20
	BassHighHz   = 250
	MidsHighHz   = 4000
	TrebleHighHz = 20000
)

// beatHistoryFrames is the beat detector's energy window, about one
// second of 1024-sample frames at 44.1kHz.
const beatHistoryFrames = 43

// Bands holds normalized per-band energies, each clamped to [0,1].
type Bands struct {
	Bass   float64
	Mids   float64
	Treble float64
}

// Config tunes the analyzer.
type Config struct {
	SampleRate    int     // samples per second
	Smoothing     float64 // exponential smoothing factor, default 0.3
	GainDecay     float64 // per-cycle decay of the auto-gain maxima, default 0.995
	BeatThreshold float64 // energy ratio needed to flag a beat, default 1.5
}

// Analyzer converts raw sample buffers into smoothed band energies. It keeps
// per-band auto-gain state so output tracks recent loudness rather than
// absolute scale. Not safe for concurrent use; it is owned by the producer
// loop.
type Analyzer struct {
	sampleRate    int
	smoothing     float64
	gainDecay     float64
	beatThreshold float64

	fft    *fourier.FFT
	fftLen int
	coeffs []complex128

	smoothedBass      float64
	smoothedMids      float64
	smoothedTreble    float64
	smoothedAmplitude float64

	// Auto-gain running maxima. They decay each cycle and reset upward
	// only when the current measurement exceeds them.
	maxBass   float64
	maxMids   float64
	maxTreble float64

	// Recent frame energies for beat detection, a ring of roughly the
	// last second of frames.
	energyHist []float64
	energyNext int
	energyN    int
}

// NewAnalyzer creates an analyzer for the given configuration, applying
// defaults for zero-valued tuning fields.
func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.Smoothing <= 0 {
		cfg.Smoothing = 0.3
	}
	if cfg.GainDecay <= 0 {
		cfg.GainDecay = 0.995
	}
	if cfg.BeatThreshold <= 0 {
		cfg.BeatThreshold = 1.5
	}
	return &Analyzer{
		sampleRate:    cfg.SampleRate,
		smoothing:     cfg.Smoothing,
		gainDecay:     cfg.GainDecay,
		beatThreshold: cfg.BeatThreshold,
		maxBass:       1.0,
		maxMids:       1.0,
		maxTreble:     1.0,
	}
}

// SampleRate returns the configured sample rate.
func (a *Analyzer) SampleRate() int { return a.sampleRate }

// Analyze computes the magnitude spectrum of frame, buckets it into bass,
// mids and treble, normalizes each band against its auto-gain maximum, and
// returns exponentially smoothed energies. A frame with no energy yields
// zero-valued bands, never an error.
func (a *Analyzer) Analyze(frame []float64) Bands {
	var rawBass, rawMids, rawTreble float64
	if len(frame) > 1 {
		rawBass, rawMids, rawTreble = a.bandMagnitudes(frame)
	}

	a.maxBass = math.Max(rawBass, a.maxBass*a.gainDecay)
	a.maxMids = math.Max(rawMids, a.maxMids*a.gainDecay)
	a.maxTreble = math.Max(rawTreble, a.maxTreble*a.gainDecay)

	a.smoothedBass = clamp01(a.smooth(a.smoothedBass, normalize(rawBass, a.maxBass)))
	a.smoothedMids = clamp01(a.smooth(a.smoothedMids, normalize(rawMids, a.maxMids)))
	a.smoothedTreble = clamp01(a.smooth(a.smoothedTreble, normalize(rawTreble, a.maxTreble)))

	return Bands{Bass: a.smoothedBass, Mids: a.smoothedMids, Treble: a.smoothedTreble}
}

// Amplitude returns the smoothed RMS amplitude of frame scaled into [0,1].
// Typical program material peaks around 0.5 RMS, hence the ×2 scale.
func (a *Analyzer) Amplitude(frame []float64) float64 {
	rms := RMS(frame)
	a.smoothedAmplitude = a.smooth(a.smoothedAmplitude, rms)
	return clamp01(a.smoothedAmplitude * 2)
}

// DetectBeat flags a beat when the frame's energy exceeds the threshold
// multiple of the recent average energy. This is a simplified heuristic
// rather than a full onset detector; callers must not rely on its trigger
// accuracy.
func (a *Analyzer) DetectBeat(frame []float64) bool {
	if len(frame) == 0 {
		return false
	}
	var energy float64
	for _, s := range frame {
		energy += s * s
	}

	if a.energyHist == nil {
		a.energyHist = make([]float64, beatHistoryFrames)
	}
	count := a.energyN
	var sum float64
	for i := 0; i < count; i++ {
		sum += a.energyHist[i]
	}

	a.energyHist[a.energyNext] = energy
	a.energyNext = (a.energyNext + 1) % len(a.energyHist)
	if a.energyN < len(a.energyHist) {
		a.energyN++
	}

	if count == 0 {
		return false
	}
	return energy > a.beatThreshold*(sum/float64(count))
}

// bandMagnitudes runs the real FFT over frame and returns the mean bin
// magnitude of each band. Bands with no bins in range report zero.
func (a *Analyzer) bandMagnitudes(frame []float64) (bass, mids, treble float64) {
	if a.fft == nil || a.fftLen != len(frame) {
		a.fft = fourier.NewFFT(len(frame))
		a.fftLen = len(frame)
		a.coeffs = make([]complex128, len(frame)/2+1)
	}
	coeffs := a.fft.Coefficients(a.coeffs, frame)

	var bassSum, midsSum, trebleSum float64
	var bassN, midsN, trebleN int
	for i, c := range coeffs {
		freq := a.fft.Freq(i) * float64(a.sampleRate)
		mag := cmplx.Abs(c)
		switch {
		case freq >= BassLowHz && freq < BassHighHz:
			bassSum += mag
			bassN++
		case freq >= BassHighHz && freq < MidsHighHz:
			midsSum += mag
			midsN++
		case freq >= MidsHighHz && freq < TrebleHighHz:
			trebleSum += mag
			trebleN++
		}
	}
	if bassN > 0 {
		bass = bassSum / float64(bassN)
	}
	if midsN > 0 {
		mids = midsSum / float64(midsN)
	}
	if trebleN > 0 {
		treble = trebleSum / float64(trebleN)
	}
	return bass, mids, treble
}

func (a *Analyzer) smooth(prev, value float64) float64 {
	return a.smoothing*value + (1-a.smoothing)*prev
}

// RMS returns the root-mean-square amplitude of frame, or 0 for an empty frame.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func normalize(raw, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return raw / max
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
