package listener

import "context"

type Interface interface {
	// ListenLoop reads frames until ctx is done or the capture source fails.
	ListenLoop(ctx context.Context) error
	State() State
	// Wait blocks until the in-flight command, if any, has finished.
	Wait() error
}

// CaptureSource is the part of the audio capture the loop needs.
type CaptureSource interface {
	ReadFrame() ([]int16, error)
	Resample(frame []int16) []int16
	SampleRate() int
	FrameSize() int
}

// Handler processes one recorded command.
type Handler interface {
	HandleUtterance(ctx context.Context, frames [][]int16, sampleRate int) error
}
