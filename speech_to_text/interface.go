package speech_to_text

import "context"

type Interface interface {
	// Transcribe converts mono 16-bit PCM frames captured at sampleRate to text.
	// Every failure, including silence, is reported as ErrSpeechUnrecognized.
	Transcribe(ctx context.Context, frames [][]int16, sampleRate int) (string, error)
}
