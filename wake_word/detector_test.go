package wake_word

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant-home-control/speech_to_text"
)

type fakeEngine struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	got   [][]int16
	// block holds Transcribe until closed
	block chan struct{}
}

func (f *fakeEngine) Transcribe(ctx context.Context, frames [][]int16, _ int) (string, error) {
	f.mu.Lock()
	f.calls++
	f.got = frames
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return f.text, f.err
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// waitIdle blocks until the detector has no inference running.
func waitIdle(d Interface) {
	d.(*detectorImpl).wg.Wait()
}

// 160 samples is 10ms at 16kHz
func tone(amplitude float64) []int16 {
	out := make([]int16, 160)
	for i := range out {
		out[i] = int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return out
}

func newTestDetector(t *testing.T, engine *fakeEngine, stride int) Interface {
	t.Helper()

	d, err := New(&Config{
		Phrase: "hey_jarvis",
		Engine: engine,
		Window: 50 * time.Millisecond,
		Stride: stride,
	})
	require.NoError(t, err)

	return d
}

// speak fills the five frame window with a quiet-to-loud burst which the VAD
// reads as an onset on the last frame. Inference starts on that frame.
func speak(d Interface) float32 {
	for i := 0; i < 3; i++ {
		d.Predict(tone(10))
	}
	d.Predict(tone(20))
	return d.Predict(tone(20000))
}

func TestPredict_RecognisesPhrase(t *testing.T) {
	engine := &fakeEngine{text: "Hey, Jarvis!"}
	d := newTestDetector(t, engine, 1)

	assert.Zero(t, speak(d))
	waitIdle(d)

	assert.Equal(t, 1, engine.callCount())
	require.Len(t, engine.got, 1)
	assert.Len(t, engine.got[0], 800)

	// the finished score is reported by the next frame, once
	assert.Equal(t, float32(1), d.Predict(tone(10)))
	waitIdle(d)
}

func TestPredict_NoInferenceWithoutVoiceActivity(t *testing.T) {
	engine := &fakeEngine{text: "hey jarvis"}
	d := newTestDetector(t, engine, 1)

	for i := 0; i < 10; i++ {
		assert.Zero(t, d.Predict(tone(5000)))
	}
	waitIdle(d)

	assert.Zero(t, engine.callCount())
}

func TestPredict_StrideLimitsInference(t *testing.T) {
	engine := &fakeEngine{text: "something else"}
	d := newTestDetector(t, engine, 3)

	speak(d)
	waitIdle(d)
	assert.Equal(t, 1, engine.callCount())

	d.Predict(tone(20000))
	d.Predict(tone(20000))
	waitIdle(d)
	assert.Equal(t, 1, engine.callCount())

	d.Predict(tone(20000))
	waitIdle(d)
	assert.Equal(t, 2, engine.callCount())
}

func TestPredict_UnrecognisedSpeechScoresZero(t *testing.T) {
	engine := &fakeEngine{err: speech_to_text.ErrSpeechUnrecognized}
	d := newTestDetector(t, engine, 1)

	speak(d)
	waitIdle(d)

	assert.Zero(t, d.Predict(tone(10)))
	waitIdle(d)
	assert.GreaterOrEqual(t, engine.callCount(), 1)
}

func TestPredict_SlowEngineDoesNotBlock(t *testing.T) {
	engine := &fakeEngine{text: "hey jarvis", block: make(chan struct{})}
	d := newTestDetector(t, engine, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)

		speak(d)
		for i := 0; i < 5; i++ {
			d.Predict(tone(20000))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Predict waited on the engine")
	}

	// eligible frames while the first inference runs start nothing new
	require.Eventually(t, func() bool { return engine.callCount() == 1 }, time.Second, time.Millisecond)
	d.Predict(tone(20000))
	assert.Equal(t, 1, engine.callCount())

	close(engine.block)
	waitIdle(d)

	assert.Equal(t, float32(1), d.Predict(tone(20000)))
	waitIdle(d)
}

func TestReset_DropsInFlightResult(t *testing.T) {
	engine := &fakeEngine{text: "hey jarvis", block: make(chan struct{})}
	d := newTestDetector(t, engine, 1)

	speak(d)
	require.Eventually(t, func() bool { return engine.callCount() == 1 }, time.Second, time.Millisecond)

	d.Reset()
	close(engine.block)
	waitIdle(d)

	assert.Zero(t, d.Predict(tone(10)))

	// the detector runs again once the window refills
	d.Reset()
	speak(d)
	waitIdle(d)
	assert.Equal(t, 2, engine.callCount())
	assert.Equal(t, float32(1), d.Predict(tone(10)))
	waitIdle(d)
}

func TestReset_ClearsWindow(t *testing.T) {
	engine := &fakeEngine{text: "hey jarvis"}
	d := newTestDetector(t, engine, 1)

	speak(d)
	waitIdle(d)
	require.Equal(t, 1, engine.callCount())

	d.Reset()

	// the finished score is discarded and the window has to fill again
	// before anything is inferred
	assert.Zero(t, d.Predict(tone(20000)))
	waitIdle(d)
	assert.Equal(t, 1, engine.callCount())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{Phrase: "  ", Engine: &fakeEngine{}})
	assert.Error(t, err)

	_, err = New(&Config{Phrase: "hey jarvis"})
	assert.Error(t, err)

	d, err := New(&Config{Phrase: "Hey_Jarvis", Engine: &fakeEngine{}})
	require.NoError(t, err)
	assert.Equal(t, "hey jarvis", d.Phrase())
}

func TestScore(t *testing.T) {
	assert.Equal(t, float32(1), Score("hey jarvis", "hey jarvis"))
	assert.Equal(t, float32(1), Score("Okay. Hey, Jarvis, what's up", "hey_jarvis"))
	assert.Equal(t, float32(1), Score("hey hey jarvis", "hey jarvis"))
	assert.InDelta(t, 3.0/18.0, Score("hey there", "hey jarvis"), 1e-6)
	assert.InDelta(t, 6.0/18.0, Score("jarvis", "hey jarvis"), 1e-6)
	assert.InDelta(t, 6.0/18.0, Score("jarvis hey", "hey jarvis"), 1e-6)
	assert.Zero(t, Score("hello", "jarvis"))
	assert.Zero(t, Score("", "hey jarvis"))
	assert.Zero(t, Score("anything", ""))
}

func TestScore_PartialMatchNeverTriggers(t *testing.T) {
	phrase := "okay computer please"

	for _, transcript := range []string{"okay", "computer please", "okay please", "okay computer"} {
		score := Score(transcript, phrase)

		assert.Greater(t, score, float32(0), transcript)
		assert.False(t, Triggered(score, 0.5), transcript)
	}

	assert.True(t, Triggered(Score("okay computer please", phrase), 0.5))
}

func TestTriggered_SingleFrame(t *testing.T) {
	assert.True(t, Triggered(0.5, 0.5))
	assert.True(t, Triggered(0.9, 0.5))
	assert.False(t, Triggered(0.49, 0.5))
}
