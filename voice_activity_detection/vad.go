package voice_activity_detection

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// OnsetRatio is how much the spectral flux must grow over the previous frame
// before the frame counts as the start of speech.
const OnsetRatio = 1.75

// VAD tracks the spectral flux between consecutive frames.
type VAD struct {
	frameSize    int
	lastSpectrum []float64
	lastFlux     float64
}

func New(frameSize int) *VAD {
	return &VAD{
		frameSize: frameSize,
	}
}

// Flux returns the sum of positive magnitude changes between this frame's
// spectrum and the previous one. The first frame after New or Reset has no
// reference and returns 0.
func (v *VAD) Flux(samples []int16) float64 {
	spectrum := v.spectrum(samples)

	if v.lastSpectrum == nil {
		v.lastSpectrum = spectrum
		return 0
	}

	var flux float64
	for i := range spectrum {
		if i >= len(v.lastSpectrum) {
			break
		}

		if diff := spectrum[i] - v.lastSpectrum[i]; diff > 0 {
			flux += diff
		}
	}

	v.lastSpectrum = spectrum

	return flux
}

// Onset reports whether samples start a burst of activity relative to the
// frame before it.
func (v *VAD) Onset(samples []int16) bool {
	flux := v.Flux(samples)

	if v.lastFlux == 0 {
		v.lastFlux = flux
		return false
	}

	onset := flux >= v.lastFlux*OnsetRatio
	v.lastFlux = flux

	return onset
}

func (v *VAD) Reset() {
	v.lastSpectrum = nil
	v.lastFlux = 0
}

func (v *VAD) spectrum(samples []int16) []float64 {
	n := v.frameSize
	if n <= 0 || n > len(samples) {
		n = len(samples)
	}

	if n == 0 {
		return nil
	}

	in := make([]float64, n)
	for i := 0; i < n; i++ {
		in[i] = float64(samples[i]) / 32768.0
	}

	out := fft.FFTReal(in)

	mags := make([]float64, len(out)/2+1)
	for i := range mags {
		mags[i] = cmplx.Abs(out[i])
	}

	return mags
}
