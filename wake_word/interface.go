package wake_word

// Interface scores 16kHz frames against the configured wake phrase. The model
// keeps state across calls; Reset must be called once per cooldown so an
// earlier utterance cannot trigger the next detection.
type Interface interface {
	Predict(frame []int16) float32
	Reset()
	Phrase() string
}

// Triggered applies the detection policy: a single frame at or above the
// threshold is a detection. There is no smoothing across frames.
func Triggered(confidence, threshold float32) bool {
	return confidence >= threshold
}
