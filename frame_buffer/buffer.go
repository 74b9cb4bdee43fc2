package frame_buffer

import "sync"

type bufImpl struct {
	mu     sync.Mutex
	frames [][]int16
}

func New() Interface {
	return &bufImpl{}
}

// Append stores a copy of frame; the caller may reuse its slice.
func (b *bufImpl) Append(frame []int16) {
	f := make([]int16, len(frame))
	copy(f, frame)

	b.mu.Lock()
	b.frames = append(b.frames, f)
	b.mu.Unlock()
}

func (b *bufImpl) Clear() {
	b.mu.Lock()
	b.frames = nil
	b.mu.Unlock()
}

func (b *bufImpl) Snapshot() [][]int16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([][]int16, len(b.frames))
	copy(out, b.frames)

	return out
}

// Drain returns the buffered frames and leaves the buffer empty.
func (b *bufImpl) Drain() [][]int16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.frames
	b.frames = nil

	return out
}

func (b *bufImpl) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.frames)
}
