package audio_capture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog/log"
)

// frameMillis is the length of one frame.
const frameMillis = 80

var (
	// DefaultCandidateRates are probed in order; the first one that opens wins.
	DefaultCandidateRates = []int{48000, 44100, 32000, 22050, 16000}

	// knownInputNames identifies I2S microphone boards when no hint is given.
	knownInputNames = []string{"i2s", "seeed-2mic-voicecard", "googlevoicehat"}
)

type captureImpl struct {
	backend        backend
	candidateRates []int

	initialized bool
	device      *portaudio.DeviceInfo
	stream      inputStream
	in          []int16
	sampleRate  int
	frameSize   int
}

type Config struct {
	// CandidateRates overrides DefaultCandidateRates.
	CandidateRates []int
}

func New(cfg *Config) (Interface, error) {
	return newCapture(cfg, portaudioBackend{})
}

func newCapture(cfg *Config, b backend) (*captureImpl, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	rates := cfg.CandidateRates
	if len(rates) == 0 {
		rates = DefaultCandidateRates
	}

	for _, rate := range rates {
		if rate < ModelSampleRate {
			return nil, fmt.Errorf("candidate rate %d is below %d", rate, ModelSampleRate)
		}
	}

	return &captureImpl{
		backend:        b,
		candidateRates: rates,
	}, nil
}

func (c *captureImpl) Open(deviceHint string) (int, int, error) {
	if err := c.initAudio(); err != nil {
		return 0, 0, err
	}

	device, err := c.findDevice(deviceHint)
	if err != nil {
		return 0, 0, err
	}

	rate, frameSize, err := c.findSampleRate(device)
	if err != nil {
		return 0, 0, err
	}

	in := make([]int16, frameSize)

	stream, err := c.backend.OpenInput(device, rate, in)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: reopening at %dHz: %v", ErrHardwareUnavailable, rate, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return 0, 0, fmt.Errorf("%w: starting stream: %v", ErrHardwareUnavailable, err)
	}

	c.device = device
	c.stream = stream
	c.in = in
	c.sampleRate = rate
	c.frameSize = frameSize

	log.Info().
		Int("rate", rate).
		Int("frame_size", frameSize).
		Str("device", deviceName(device)).
		Msg("audio system ready")

	return rate, frameSize, nil
}

func (c *captureImpl) ReadFrame() ([]int16, error) {
	if c.stream == nil {
		return nil, fmt.Errorf("stream is not open")
	}

	err := c.stream.Read()
	if err != nil {
		if !isOverflow(err) {
			return nil, err
		}

		// the buffer still holds a full frame; the dropped audio is gone
		log.Warn().Msg("input overflowed, audio dropped")
	}

	frame := make([]int16, len(c.in))
	copy(frame, c.in)

	return frame, nil
}

func (c *captureImpl) Resample(frame []int16) []int16 {
	return Decimate(frame, c.sampleRate)
}

func (c *captureImpl) SampleRate() int {
	return c.sampleRate
}

func (c *captureImpl) FrameSize() int {
	return c.frameSize
}

func (c *captureImpl) ListDevices() ([]DeviceInfo, error) {
	if err := c.initAudio(); err != nil {
		return nil, err
	}

	devices, err := c.backend.Devices()
	if err != nil {
		return nil, err
	}

	out := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceInfo{
			Index:             d.Index,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		})
	}

	return out, nil
}

func (c *captureImpl) Close() error {
	var firstErr error

	if c.stream != nil {
		if err := c.stream.Stop(); err != nil {
			firstErr = err
		}

		if err := c.stream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		c.stream = nil
	}

	if c.initialized {
		if err := c.backend.Terminate(); err != nil {
			log.Error().Err(err).Msg("error while freeing audio")
		}

		c.initialized = false
	}

	return firstErr
}

func (c *captureImpl) initAudio() error {
	if !c.initialized {
		if err := c.backend.Initialize(); err != nil {
			return fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
		}

		c.initialized = true
	}

	return nil
}

// findDevice resolves the hint to an input device. A numeric hint is a device
// index, any other non-empty hint is matched against device names. Without a
// hint the known I2S boards are tried before the default input.
func (c *captureImpl) findDevice(hint string) (*portaudio.DeviceInfo, error) {
	devices, err := c.backend.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: listing devices: %v", ErrHardwareUnavailable, err)
	}

	hint = strings.ToLower(strings.TrimSpace(hint))

	if index, convErr := strconv.Atoi(hint); hint != "" && convErr == nil {
		for _, d := range devices {
			if d.Index == index && d.MaxInputChannels > 0 {
				return d, nil
			}
		}

		return nil, fmt.Errorf("%w: no input device with index %d", ErrHardwareUnavailable, index)
	}

	names := knownInputNames
	if hint != "" {
		names = []string{hint}
	}

	for _, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}

		name := strings.ToLower(d.Name)
		for _, n := range names {
			if strings.Contains(name, n) {
				log.Info().Str("device", d.Name).Int("index", d.Index).Msg("found input device")
				return d, nil
			}
		}
	}

	log.Warn().Str("hint", hint).Msg("could not find matching input device, using default input")

	device, err := c.backend.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: no default input: %v", ErrHardwareUnavailable, err)
	}

	return device, nil
}

func (c *captureImpl) findSampleRate(device *portaudio.DeviceInfo) (int, int, error) {
	for _, rate := range c.candidateRates {
		frameSize := rate * frameMillis / 1000

		stream, err := c.backend.OpenInput(device, rate, make([]int16, frameSize))
		if err != nil {
			log.Debug().Int("rate", rate).Err(err).Msg("sample rate not supported")
			continue
		}

		if err := stream.Close(); err != nil {
			log.Warn().Int("rate", rate).Err(err).Msg("closing probe stream")
		}

		log.Info().Int("rate", rate).Msg("sample rate supported")

		return rate, frameSize, nil
	}

	return 0, 0, fmt.Errorf("%w: none of %v Hz opened", ErrHardwareUnavailable, c.candidateRates)
}

func deviceName(d *portaudio.DeviceInfo) string {
	if d == nil {
		return "default"
	}

	return d.Name
}
