package speech_to_text

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"

	"assistant-home-control/audio_capture"
)

// segmentSource is the part of a whisper context the engine reads from.
type segmentSource interface {
	Process([]float32, whisper.SegmentCallback) error
	NextSegment() (whisper.Segment, error)
}

type sttImpl struct {
	// contexts made from one model share its whisper state, so only one
	// transcription runs at a time
	mu         sync.Mutex
	newContext func() (segmentSource, error)
}

type Config struct {
	Model    whisper.Model
	Language string
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Model == nil {
		return nil, fmt.Errorf("model is nil")
	}

	model := cfg.Model
	language := cfg.Language

	return &sttImpl{
		newContext: func() (segmentSource, error) {
			ctx, err := model.NewContext()
			if err != nil {
				return nil, err
			}

			if language != "" {
				if err := ctx.SetLanguage(language); err != nil {
					return nil, err
				}
			}

			return ctx, nil
		},
	}, nil
}

func (stt *sttImpl) Transcribe(ctx context.Context, frames [][]int16, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSpeechUnrecognized, err)
	}

	if sampleRate < audio_capture.ModelSampleRate {
		return "", fmt.Errorf("%w: sample rate %d below %d", ErrSpeechUnrecognized, sampleRate, audio_capture.ModelSampleRate)
	}

	data := toModelFloats(concat(frames), sampleRate)
	if len(data) == 0 {
		return "", fmt.Errorf("%w: no audio", ErrSpeechUnrecognized)
	}

	segments, err := stt.process(data)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		log.Debug().
			Dur("start", segment.Start).
			Dur("end", segment.End).
			Str("text", segment.Text).
			Msg("segment")

		parts = append(parts, strings.TrimSpace(segment.Text))
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrSpeechUnrecognized)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSpeechUnrecognized, err)
	}

	return text, nil
}

func (stt *sttImpl) process(data []float32) ([]whisper.Segment, error) {
	stt.mu.Lock()
	defer stt.mu.Unlock()

	source, err := stt.newContext()
	if err != nil {
		return nil, fmt.Errorf("%w: creating context: %v", ErrSpeechUnrecognized, err)
	}

	// Segment callback when -tokens is specified
	var cb whisper.SegmentCallback

	if err := source.Process(data, cb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpeechUnrecognized, err)
	}

	segments, err := outputSegments(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpeechUnrecognized, err)
	}

	return segments, nil
}

// outputSegments drops bracketed annotations like [BLANK_AUDIO] or (music)
// and repeated segments.
func outputSegments(context segmentSource) ([]whisper.Segment, error) {
	seenText := make(map[string]bool)

	segments := make([]whisper.Segment, 0)

	for {
		segment, err := context.NextSegment()
		if err == io.EOF {
			return segments, nil
		} else if err != nil {
			return nil, err
		}

		text := strings.TrimSpace(segment.Text)

		if len(text) > 0 && (text[0] == '(' || text[0] == '[' ||
			text[len(text)-1] == ')' || text[len(text)-1] == ']') {
			continue
		}

		if _, ok := seenText[text]; ok {
			continue
		} else {
			seenText[text] = true
		}

		segments = append(segments, segment)
	}
}
