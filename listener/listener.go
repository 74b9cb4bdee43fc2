package listener

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"assistant-home-control/frame_buffer"
	"assistant-home-control/notify"
	"assistant-home-control/wake_word"
)

const (
	DefaultThreshold        = 0.5
	DefaultSilenceThreshold = 500
	DefaultSilenceDuration  = 1500 * time.Millisecond
	DefaultMaxRecording     = 7 * time.Second
	DefaultCooldown         = 2 * time.Second
	DefaultIdleSleep        = 20 * time.Millisecond
)

type listenerImpl struct {
	capture  CaptureSource
	detector wake_word.Interface
	handler  Handler
	notifier notify.Interface
	buffer   frame_buffer.Interface

	threshold        float32
	silenceThreshold float64
	silenceDuration  time.Duration
	maxRecording     time.Duration
	cooldown         time.Duration
	idleSleep        time.Duration

	state pipelineState
	tasks errgroup.Group
	now   func() time.Time

	// owned by the capture loop
	silenceFrames int
	silentCount   int
	recordStart   time.Time
}

type Config struct {
	Capture  CaptureSource
	Detector wake_word.Interface
	Handler  Handler
	Notifier notify.Interface

	Threshold        float32
	SilenceThreshold float64
	SilenceDuration  time.Duration
	MaxRecording     time.Duration
	CooldownDuration time.Duration
	IdleSleep        time.Duration
}

func New(cfg *Config) (Interface, error) {
	return newListener(cfg)
}

func newListener(cfg *Config) (*listenerImpl, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Capture == nil {
		return nil, fmt.Errorf("capture is nil")
	}

	if cfg.Detector == nil {
		return nil, fmt.Errorf("detector is nil")
	}

	if cfg.Handler == nil {
		return nil, fmt.Errorf("handler is nil")
	}

	if cfg.Notifier == nil {
		return nil, fmt.Errorf("notifier is nil")
	}

	l := &listenerImpl{
		capture:          cfg.Capture,
		detector:         cfg.Detector,
		handler:          cfg.Handler,
		notifier:         cfg.Notifier,
		buffer:           frame_buffer.New(),
		threshold:        orDefault(cfg.Threshold, DefaultThreshold),
		silenceThreshold: orDefault(cfg.SilenceThreshold, DefaultSilenceThreshold),
		silenceDuration:  orDefault(cfg.SilenceDuration, DefaultSilenceDuration),
		maxRecording:     orDefault(cfg.MaxRecording, DefaultMaxRecording),
		cooldown:         orDefault(cfg.CooldownDuration, DefaultCooldown),
		idleSleep:        cfg.IdleSleep,
		now:              time.Now,
	}

	l.tasks.SetLimit(1)

	return l, nil
}

func orDefault[T float32 | float64 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}

	return v
}

func (l *listenerImpl) State() State {
	return l.state.Load()
}

func (l *listenerImpl) Wait() error {
	return l.tasks.Wait()
}

func (l *listenerImpl) ListenLoop(ctx context.Context) error {
	rate, frameSize := l.capture.SampleRate(), l.capture.FrameSize()
	if rate <= 0 || frameSize <= 0 {
		return fmt.Errorf("capture not open: rate %d, frame size %d", rate, frameSize)
	}

	framesPerSecond := rate / frameSize
	l.silenceFrames = int(l.silenceDuration.Seconds() * float64(framesPerSecond))

	if !l.transition(Initializing, ListeningForWakeword) {
		return fmt.Errorf("listen loop already started")
	}

	log.Info().
		Int("rate", rate).
		Int("frame_size", frameSize).
		Int("silence_frames", l.silenceFrames).
		Str("phrase", l.detector.Phrase()).
		Msg("starting to listen")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("exiting gracefully")

			return nil
		default:
		}

		// always read, whatever the state, so the input buffer never overflows
		frame, err := l.capture.ReadFrame()
		if err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}

		switch l.state.Load() {
		case ListeningForWakeword:
			l.listenForWake(frame)
		case RecordingCommand:
			l.listenForCommand(ctx, frame)
		default:
			if l.idleSleep > 0 {
				time.Sleep(l.idleSleep)
			}
		}
	}
}

func (l *listenerImpl) listenForWake(frame []int16) {
	confidence := l.detector.Predict(l.capture.Resample(frame))

	if !wake_word.Triggered(confidence, l.threshold) {
		return
	}

	log.Info().Float32("confidence", confidence).Msg("wake word detected")

	l.buffer.Clear()
	l.silentCount = 0
	l.recordStart = l.now()

	l.transition(ListeningForWakeword, RecordingCommand)
}

func (l *listenerImpl) listenForCommand(ctx context.Context, frame []int16) {
	l.buffer.Append(frame)

	if energy(frame) < l.silenceThreshold {
		l.silentCount++
	} else {
		l.silentCount = 0
	}

	silent := l.silentCount > l.silenceFrames
	tooLong := l.now().Sub(l.recordStart) > l.maxRecording

	if !silent && !tooLong {
		return
	}

	log.Debug().
		Bool("silence", silent).
		Bool("max_duration", tooLong).
		Int("frames", l.buffer.Len()).
		Msg("command recorded")

	if !l.transition(RecordingCommand, Processing) {
		return
	}

	// the previous task returns right after it sets the state back to
	// listening, so this waits at most for that return
	l.tasks.Go(func() error {
		l.processCommand(ctx)

		return nil
	})
}

// processCommand runs the recorded command and always ends in cooldown.
func (l *listenerImpl) processCommand(ctx context.Context) {
	frames := l.buffer.Drain()

	if len(frames) == 0 {
		log.Info().Msg("no command recorded")
	} else {
		err := l.handler.HandleUtterance(ctx, frames, l.capture.SampleRate())
		if err != nil {
			log.Warn().Err(err).Msg("error handling command")
		}
	}

	l.runCooldown(ctx)
}

func (l *listenerImpl) runCooldown(ctx context.Context) {
	if !l.transition(Processing, Cooldown) {
		log.Error().Str("state", l.State().String()).Msg("cooldown entered from unexpected state")

		return
	}

	timer := time.NewTimer(l.cooldown)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return
	}

	log.Debug().Msg("resetting wake word model state")

	l.detector.Reset()

	l.transition(Cooldown, ListeningForWakeword)
}

func (l *listenerImpl) transition(from, to State) bool {
	if !l.state.Transition(from, to) {
		log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("state transition rejected")

		return false
	}

	msg := statusMessage(to, l.detector.Phrase())

	log.Info().Str("state", to.String()).Msg(msg)

	l.notifier.Publish(notify.StatusUpdate(to.String(), msg))

	return true
}

func statusMessage(s State, phrase string) string {
	switch s {
	case ListeningForWakeword:
		return fmt.Sprintf("Listening for '%s'...", phrase)
	case RecordingCommand:
		return "Listening for command..."
	case Processing:
		return "Processing your command..."
	case Cooldown:
		return "Waiting before listening again..."
	}

	return s.String()
}

// energy is the Euclidean norm of the frame.
func energy(frame []int16) float64 {
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}

	return math.Sqrt(sum)
}
