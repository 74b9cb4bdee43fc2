package audio_capture

import (
	"errors"
	"testing"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	buf     []int16
	reads   []error
	started bool
	closed  bool
	fill    int16
}

func (s *fakeStream) Start() error { s.started = true; return nil }
func (s *fakeStream) Stop() error  { return nil }
func (s *fakeStream) Close() error { s.closed = true; return nil }

func (s *fakeStream) Read() error {
	s.fill++
	for i := range s.buf {
		s.buf[i] = s.fill
	}

	if len(s.reads) == 0 {
		return nil
	}

	err := s.reads[0]
	s.reads = s.reads[1:]

	return err
}

type fakeBackend struct {
	devices   []*portaudio.DeviceInfo
	supported map[int]bool
	opened    []int
	streams   []*fakeStream
	readErrs  []error
}

func (b *fakeBackend) Initialize() error { return nil }
func (b *fakeBackend) Terminate() error  { return nil }

func (b *fakeBackend) Devices() ([]*portaudio.DeviceInfo, error) {
	return b.devices, nil
}

func (b *fakeBackend) DefaultInputDevice() (*portaudio.DeviceInfo, error) {
	if len(b.devices) == 0 {
		return nil, errors.New("no devices")
	}

	return b.devices[0], nil
}

func (b *fakeBackend) OpenInput(_ *portaudio.DeviceInfo, sampleRate int, buf []int16) (inputStream, error) {
	b.opened = append(b.opened, sampleRate)

	if !b.supported[sampleRate] {
		return nil, errors.New("invalid sample rate")
	}

	s := &fakeStream{buf: buf, reads: b.readErrs}
	b.streams = append(b.streams, s)

	return s, nil
}

func defaultDevices() []*portaudio.DeviceInfo {
	return []*portaudio.DeviceInfo{
		{Index: 0, Name: "HDMI output", MaxInputChannels: 0},
		{Index: 1, Name: "USB mic", MaxInputChannels: 1},
		{Index: 2, Name: "seeed-2mic-voicecard", MaxInputChannels: 2},
	}
}

func TestOpen_ProbesRatesInPreferenceOrder(t *testing.T) {
	b := &fakeBackend{
		devices:   defaultDevices(),
		supported: map[int]bool{44100: true, 16000: true},
	}

	c, err := newCapture(&Config{}, b)
	require.NoError(t, err)

	rate, frameSize, err := c.Open("")
	require.NoError(t, err)

	assert.Equal(t, 44100, rate)
	assert.Equal(t, 3528, frameSize)
	// probe 48000 (fail), probe 44100 (ok), reopen 44100
	assert.Equal(t, []int{48000, 44100, 44100}, b.opened)
	assert.True(t, b.streams[0].closed, "probe stream must be closed")
	assert.True(t, b.streams[1].started)
	assert.Equal(t, "seeed-2mic-voicecard", c.device.Name)
}

func TestOpen_NoRateIsFatal(t *testing.T) {
	b := &fakeBackend{
		devices:   defaultDevices(),
		supported: map[int]bool{},
	}

	c, err := newCapture(&Config{}, b)
	require.NoError(t, err)

	_, _, err = c.Open("")
	assert.ErrorIs(t, err, ErrHardwareUnavailable)
	assert.Len(t, b.opened, len(DefaultCandidateRates))
}

func TestOpen_DeviceHints(t *testing.T) {
	t.Run("numeric hint selects by index", func(t *testing.T) {
		b := &fakeBackend{devices: defaultDevices(), supported: map[int]bool{16000: true}}
		c, _ := newCapture(&Config{}, b)

		_, _, err := c.Open("1")
		require.NoError(t, err)
		assert.Equal(t, "USB mic", c.device.Name)
	})

	t.Run("index of an output only device fails", func(t *testing.T) {
		b := &fakeBackend{devices: defaultDevices(), supported: map[int]bool{16000: true}}
		c, _ := newCapture(&Config{}, b)

		_, _, err := c.Open("0")
		assert.ErrorIs(t, err, ErrHardwareUnavailable)
	})

	t.Run("name hint is case insensitive", func(t *testing.T) {
		b := &fakeBackend{devices: defaultDevices(), supported: map[int]bool{16000: true}}
		c, _ := newCapture(&Config{}, b)

		_, _, err := c.Open("usb")
		require.NoError(t, err)
		assert.Equal(t, "USB mic", c.device.Name)
	})

	t.Run("unknown name falls back to default input", func(t *testing.T) {
		b := &fakeBackend{devices: defaultDevices(), supported: map[int]bool{16000: true}}
		c, _ := newCapture(&Config{}, b)

		_, _, err := c.Open("nothing like this")
		require.NoError(t, err)
		assert.Equal(t, "HDMI output", c.device.Name)
	})
}

func TestReadFrame_OverflowIsNotAnError(t *testing.T) {
	b := &fakeBackend{
		devices:   defaultDevices(),
		supported: map[int]bool{16000: true},
		readErrs:  []error{portaudio.InputOverflowed, nil},
	}

	c, _ := newCapture(&Config{}, b)
	_, frameSize, err := c.Open("")
	require.NoError(t, err)

	frame, err := c.ReadFrame()
	require.NoError(t, err)
	assert.Len(t, frame, frameSize)

	frame, err = c.ReadFrame()
	require.NoError(t, err)
	assert.Len(t, frame, frameSize)
}

func TestReadFrame_OtherErrorsPropagate(t *testing.T) {
	b := &fakeBackend{
		devices:   defaultDevices(),
		supported: map[int]bool{16000: true},
		readErrs:  []error{errors.New("device unplugged")},
	}

	c, _ := newCapture(&Config{}, b)
	_, _, err := c.Open("")
	require.NoError(t, err)

	_, err = c.ReadFrame()
	assert.EqualError(t, err, "device unplugged")
}

func TestReadFrame_ReturnsCopy(t *testing.T) {
	b := &fakeBackend{devices: defaultDevices(), supported: map[int]bool{16000: true}}
	c, _ := newCapture(&Config{}, b)
	_, _, err := c.Open("")
	require.NoError(t, err)

	first, _ := c.ReadFrame()
	second, _ := c.ReadFrame()

	assert.NotEqual(t, first[0], second[0])
}

func TestDecimate(t *testing.T) {
	frame := make([]int16, 12)
	for i := range frame {
		frame[i] = int16(i)
	}

	assert.Equal(t, []int16{0, 3, 6, 9}, Decimate(frame, 48000))
	assert.Equal(t, []int16{0, 2, 4, 6, 8, 10}, Decimate(frame, 32000))
	assert.Equal(t, []int16{0, 2, 4, 6, 8, 10}, Decimate(frame, 44100))
	assert.Equal(t, frame, Decimate(frame, 22050))
	assert.Equal(t, frame, Decimate(frame, 16000))
}

func TestNew_RejectsRatesBelowModelRate(t *testing.T) {
	_, err := New(&Config{CandidateRates: []int{8000}})
	assert.Error(t, err)

	_, err = New(nil)
	assert.Error(t, err)
}
