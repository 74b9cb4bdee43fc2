package audio_capture

import (
	"time"

	"github.com/gordonklaus/portaudio"
)

type inputStream interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

// backend is the slice of portaudio the engine uses.
type backend interface {
	Initialize() error
	Terminate() error
	Devices() ([]*portaudio.DeviceInfo, error)
	DefaultInputDevice() (*portaudio.DeviceInfo, error)
	OpenInput(device *portaudio.DeviceInfo, sampleRate int, buf []int16) (inputStream, error)
}

type portaudioBackend struct{}

func (portaudioBackend) Initialize() error {
	return portaudio.Initialize()
}

func (portaudioBackend) Terminate() error {
	return portaudio.Terminate()
}

func (portaudioBackend) Devices() ([]*portaudio.DeviceInfo, error) {
	return portaudio.Devices()
}

func (portaudioBackend) DefaultInputDevice() (*portaudio.DeviceInfo, error) {
	return portaudio.DefaultInputDevice()
}

func (portaudioBackend) OpenInput(device *portaudio.DeviceInfo, sampleRate int, buf []int16) (inputStream, error) {
	latency := time.Duration(0)
	if device != nil {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  latency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: len(buf),
	}

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, err
	}

	return stream, nil
}

func isOverflow(err error) bool {
	return err == portaudio.InputOverflowed
}
