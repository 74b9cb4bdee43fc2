package audio_capture

// ModelSampleRate is the rate the wake word and transcription models expect.
const ModelSampleRate = 16000

// Decimate keeps every Nth sample where N = nativeRate / ModelSampleRate.
// There is no anti-alias filter. A rate of 16kHz or less is returned as is.
func Decimate(frame []int16, nativeRate int) []int16 {
	factor := nativeRate / ModelSampleRate
	if factor <= 1 {
		return frame
	}

	out := make([]int16, 0, len(frame)/factor+1)
	for i := 0; i < len(frame); i += factor {
		out = append(out, frame[i])
	}

	return out
}
