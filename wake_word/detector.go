package wake_word

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"assistant-home-control/audio_capture"
	"assistant-home-control/ring_buffer"
	"assistant-home-control/speech_to_text"
	"assistant-home-control/voice_activity_detection"
)

const (
	DefaultWindow           = 1500 * time.Millisecond
	DefaultStride           = 6
	DefaultInferenceTimeout = 5 * time.Second
)

// detectorImpl recognises the wake phrase by transcribing a rolling window of
// the most recent audio. Inference only runs when the window is full, at most
// once every stride frames, and only if voice activity started within the
// window.
//
// Transcription runs on its own goroutine over a snapshot of the window so
// Predict never waits on the model. At most one inference is in flight and a
// finished score is reported by the next Predict call.
type detectorImpl struct {
	phrase  string
	engine  speech_to_text.Interface
	timeout time.Duration
	stride  int

	mu                sync.Mutex
	window            ring_buffer.Interface
	vad               *voice_activity_detection.VAD
	framesSinceInfer  int
	samplesSinceOnset int

	inFlight   bool
	pending    bool
	latest     float32
	// generation is bumped by Reset; results from older generations are dropped
	generation uint64
	wg         sync.WaitGroup
}

type Config struct {
	// Phrase is the wake phrase; underscores are read as spaces so model
	// style names like "hey_jarvis" work.
	Phrase           string
	Engine           speech_to_text.Interface
	Window           time.Duration
	Stride           int
	InferenceTimeout time.Duration
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	phrase := strings.TrimSpace(normalize(cfg.Phrase))
	if phrase == "" {
		return nil, fmt.Errorf("wake phrase is empty")
	}

	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is nil")
	}

	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}

	stride := cfg.Stride
	if stride <= 0 {
		stride = DefaultStride
	}

	timeout := cfg.InferenceTimeout
	if timeout <= 0 {
		timeout = DefaultInferenceTimeout
	}

	windowSamples := int(window * audio_capture.ModelSampleRate / time.Second)

	d := &detectorImpl{
		phrase:  phrase,
		engine:  cfg.Engine,
		timeout: timeout,
		stride:  stride,
		window:  ring_buffer.New(windowSamples),
		vad:     voice_activity_detection.New(0),
	}
	d.Reset()

	return d, nil
}

func (d *detectorImpl) Phrase() string {
	return d.phrase
}

func (d *detectorImpl) Predict(frame []int16) float32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.window.Add(frame)
	d.framesSinceInfer++

	if d.vad.Onset(frame) {
		d.samplesSinceOnset = 0
	} else if d.samplesSinceOnset >= 0 {
		d.samplesSinceOnset += len(frame)
	}

	var score float32
	if d.pending {
		score = d.latest
		d.pending = false
	}

	heard := d.samplesSinceOnset >= 0 && d.samplesSinceOnset < d.window.Size()

	if d.inFlight || !d.window.Full() || !heard || d.framesSinceInfer < d.stride {
		return score
	}

	d.framesSinceInfer = 0
	d.inFlight = true
	d.wg.Add(1)

	go d.infer(d.generation, d.window.Read())

	return score
}

func (d *detectorImpl) infer(generation uint64, samples []int16) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var score float32

	text, err := d.engine.Transcribe(ctx, [][]int16{samples}, audio_capture.ModelSampleRate)
	if err != nil {
		if !errors.Is(err, speech_to_text.ErrSpeechUnrecognized) {
			log.Warn().Err(err).Msg("wake word inference failed")
		}
	} else {
		score = Score(text, d.phrase)

		log.Debug().Str("heard", text).Float32("confidence", score).Msg("wake word inference")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.inFlight = false

	if generation != d.generation {
		return
	}

	d.latest = score
	d.pending = true
}

// Reset clears the window and discards any score not yet reported. An
// inference still running finishes in the background and its result is
// dropped.
func (d *detectorImpl) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.window.Clear()
	d.vad.Reset()
	d.framesSinceInfer = 0
	d.samplesSinceOnset = -1

	d.generation++
	d.pending = false
	d.latest = 0
}
