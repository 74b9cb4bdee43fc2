package audio_capture

type Interface interface {
	// Open selects the input device and negotiates the sample rate. It must be
	// called once before ReadFrame.
	Open(deviceHint string) (sampleRate int, frameSize int, err error)
	// ReadFrame blocks until FrameSize samples are available.
	ReadFrame() ([]int16, error)
	// Resample decimates a native rate frame to the wake word model rate.
	Resample(frame []int16) []int16
	SampleRate() int
	FrameSize() int
	ListDevices() ([]DeviceInfo, error)
	Close() error
}

type DeviceInfo struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}
