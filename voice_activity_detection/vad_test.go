package voice_activity_detection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tone(n int, amplitude float64, freq float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amplitude * math.Sin(2*math.Pi*freq*float64(i)/16000))
	}
	return out
}

func TestVAD_FluxFirstFrameIsZero(t *testing.T) {
	vad := New(256)

	assert.Zero(t, vad.Flux(tone(256, 1000, 440)))
}

func TestVAD_FluxGrowsWithEnergy(t *testing.T) {
	vad := New(256)

	vad.Flux(tone(256, 10, 440))
	flux := vad.Flux(tone(256, 10000, 440))

	assert.Greater(t, flux, 0.0)
}

func TestVAD_SteadySignalHasNoFlux(t *testing.T) {
	vad := New(256)
	frame := tone(256, 5000, 500)

	vad.Flux(frame)

	assert.InDelta(t, 0, vad.Flux(frame), 1e-9)
}

func TestVAD_Onset(t *testing.T) {
	vad := New(256)

	assert.False(t, vad.Onset(tone(256, 10, 440)))
	assert.False(t, vad.Onset(tone(256, 20, 440)))
	assert.True(t, vad.Onset(tone(256, 20000, 440)))
}

func TestVAD_Reset(t *testing.T) {
	vad := New(256)
	vad.Flux(tone(256, 10, 440))

	vad.Reset()

	assert.Zero(t, vad.Flux(tone(256, 20000, 440)))
}
