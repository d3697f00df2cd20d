package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// LowpassWaveform reconstructs frame with all spectral content above cutoffHz
// removed: forward real FFT, zero the high bins, inverse transform. It is
// used to isolate the bass waveform for crest-factor measurement.
func LowpassWaveform(frame []float64, sampleRate int, cutoffHz float64) []float64 {
	if len(frame) < 2 {
		out := make([]float64, len(frame))
		copy(out, frame)
		return out
	}

	fft := fourier.NewFFT(len(frame))
	coeffs := fft.Coefficients(nil, frame)
	for i := range coeffs {
		if fft.Freq(i)*float64(sampleRate) > cutoffHz {
			coeffs[i] = 0
		}
	}

	out := fft.Sequence(nil, coeffs)
	// The gonum transform pair is unnormalized: Sequence(Coefficients(x))
	// returns x scaled by len(x).
	scale := 1 / float64(len(frame))
	for i := range out {
		out[i] *= scale
	}
	return out
}

// CrestFactor returns the peak-to-RMS ratio of frame, a proxy for how
// "punchy" the waveform is. The small epsilon keeps silent frames finite.
func CrestFactor(frame []float64) float64 {
	var peak float64
	for _, s := range frame {
		if abs := math.Abs(s); abs > peak {
			peak = abs
		}
	}
	return peak / (RMS(frame) + 1e-4)
}
