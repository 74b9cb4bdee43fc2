package ring_buffer

// Interface is a fixed-size window over the most recent samples.
type Interface interface {
	Add(samples []int16)
	Read() []int16
	Clear()
	Full() bool
	Size() int
}
