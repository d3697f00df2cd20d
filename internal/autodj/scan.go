package autodj

import (
	"errors"
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/audio"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/mapper"
)

// Recommendation is the result of a one-shot track scan: a visual style
// plus tuning values matched to the track's dynamics.
type Recommendation struct {
	Style           mapper.Style
	Sensitivity     float64
	BrightnessBoost float64
	Smoothing       float64
	Reason          string

	RMS         float64
	CrestFactor float64
	BassRatio   float64
	PeakOffset  time.Duration
}

// ErrEmptyTrack is returned when the scanned sample buffer has no content.
var ErrEmptyTrack = errors.New("autodj: no samples to scan")

// ScanTrack analyzes a whole decoded track up front and recommends a style.
// It measures global loudness, then inspects a two-second window around the
// loudest moment: the crest factor of its bass waveform and the share of
// spectral energy below the bass cutoff decide between the punchy and
// smooth styles. Sensitivity is scaled inversely with loudness and clamped
// to [0.5, 6].
func ScanTrack(samples []float64, sampleRate int) (Recommendation, error) {
	if len(samples) == 0 || sampleRate <= 0 {
		return Recommendation{}, ErrEmptyTrack
	}

	rms := audio.RMS(samples)

	// Window of ±1s around the global peak.
	peakIdx := 0
	peakVal := 0.0
	for i, s := range samples {
		if abs := math.Abs(s); abs > peakVal {
			peakVal = abs
			peakIdx = i
		}
	}
	start := peakIdx - sampleRate
	if start < 0 {
		start = 0
	}
	end := peakIdx + sampleRate
	if end > len(samples) {
		end = len(samples)
	}
	chunk := samples[start:end]

	crest := 3.0
	bassRatio := 0.2
	if len(chunk) > 1 {
		bass := audio.LowpassWaveform(chunk, sampleRate, 150)
		crest = audio.CrestFactor(bass)

		fft := fourier.NewFFT(len(chunk))
		coeffs := fft.Coefficients(nil, chunk)
		var bassEnergy, totalEnergy float64
		for i, c := range coeffs {
			mag := cmplx.Abs(c)
			totalEnergy += mag
			if fft.Freq(i)*float64(sampleRate) <= 150 {
				bassEnergy += mag
			}
		}
		bassRatio = bassEnergy / (totalEnergy + 1e-3)
	}

	sensitivity := 0.16 / (rms + 1e-3)
	if sensitivity < 0.5 {
		sensitivity = 0.5
	}
	if sensitivity > 6.0 {
		sensitivity = 6.0
	}

	rec := Recommendation{
		Sensitivity: sensitivity,
		RMS:         rms,
		CrestFactor: crest,
		BassRatio:   bassRatio,
		PeakOffset:  time.Duration(float64(peakIdx) / float64(sampleRate) * float64(time.Second)),
	}

	switch {
	case bassRatio > 0.40:
		rec.Style = mapper.StyleSpectrumPulse
		rec.BrightnessBoost = 1.0
		rec.Smoothing = 0.22
		rec.Reason = "bass-heavy mix"
	case crest > 3.0:
		rec.Style = mapper.StyleSpectrumPulse
		rec.BrightnessBoost = 1.1
		rec.Smoothing = 0.20
		rec.Reason = "punchy transients"
	default:
		rec.Style = mapper.StyleSpectrumGradient
		rec.BrightnessBoost = 1.4
		rec.Sensitivity = sensitivity * 1.5
		rec.Smoothing = 0.10
		rec.Reason = "wall of sound"
	}
	if rec.Sensitivity > 6.0 {
		rec.Sensitivity = 6.0
	}
	return rec, nil
}
