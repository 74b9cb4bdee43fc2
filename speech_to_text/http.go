package speech_to_text

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/zenwerk/go-wave"
)

type httpImpl struct {
	endpoint   string
	language   string
	httpClient *http.Client
}

type HTTPConfig struct {
	Endpoint string
	Language string
	Timeout  time.Duration
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewHTTP returns an engine that uploads the utterance as a WAV file to a
// transcription service and reads the "text" field of its JSON answer.
func NewHTTP(cfg *HTTPConfig) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &httpImpl{
		endpoint:   cfg.Endpoint,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (h *httpImpl) Transcribe(ctx context.Context, frames [][]int16, sampleRate int) (string, error) {
	samples := concat(frames)
	if len(samples) == 0 {
		return "", fmt.Errorf("%w: no audio", ErrSpeechUnrecognized)
	}

	wav, err := encodeWave(samples, sampleRate)
	if err != nil {
		return "", fmt.Errorf("%w: encoding audio: %v", ErrSpeechUnrecognized, err)
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	part, err := form.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSpeechUnrecognized, err)
	}

	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSpeechUnrecognized, err)
	}

	if h.language != "" {
		if err := form.WriteField("language", h.language); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSpeechUnrecognized, err)
		}
	}

	if err := form.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSpeechUnrecognized, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSpeechUnrecognized, err)
	}

	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSpeechUnrecognized, err)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrSpeechUnrecognized, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", ErrSpeechUnrecognized, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result transcriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrSpeechUnrecognized, err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrSpeechUnrecognized)
	}

	return text, nil
}

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }

func encodeWave(samples []int16, sampleRate int) ([]byte, error) {
	out := nopCloser{&bytes.Buffer{}}

	param := wave.WriterParam{
		Out:           out,
		Channel:       1,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
	}

	waveWriter, err := wave.NewWriter(param)
	if err != nil {
		return nil, err
	}

	if _, err := waveWriter.WriteSample16(samples); err != nil {
		return nil, err
	}

	if err := waveWriter.Close(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}
