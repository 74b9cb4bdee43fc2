package frame_buffer

// Interface holds the frames of the utterance being recorded. The capture loop
// appends and clears, the command task drains.
type Interface interface {
	Append(frame []int16)
	Clear()
	Snapshot() [][]int16
	Drain() [][]int16
	Len() int
}
