package speech_to_text

import (
	"assistant-home-control/audio_capture"
)

func concat(frames [][]int16) []int16 {
	n := 0
	for _, f := range frames {
		n += len(f)
	}

	out := make([]int16, 0, n)
	for _, f := range frames {
		out = append(out, f...)
	}

	return out
}

// toModelFloats scales samples into [-1, 1] and resamples them to 16kHz.
// Rates that are not a whole multiple of 16kHz, like 44.1kHz, need
// interpolation; plain decimation would change the speed of the speech.
func toModelFloats(samples []int16, sampleRate int) []float32 {
	scaled := make([]float32, len(samples))
	for i, s := range samples {
		scaled[i] = float32(s) / 32768.0
	}

	return resampleLinear(scaled, sampleRate, audio_capture.ModelSampleRate)
}

// resampleLinear converts in from srcRate to dstRate by linear interpolation
// between neighbouring samples.
func resampleLinear(in []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(in) == 0 || srcRate <= 0 || dstRate <= 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}

	outLen := (len(in)*dstRate + srcRate - 1) / srcRate
	out := make([]float32, outLen)

	for i := range out {
		// position i*srcRate/dstRate in the input, kept in integers
		num := i * srcRate
		idx := num / dstRate

		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}

		frac := float32(num%dstRate) / float32(dstRate)
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}

	return out
}
