package listener

import "sync/atomic"

type State int32

const (
	Initializing State = iota
	ListeningForWakeword
	RecordingCommand
	Processing
	Cooldown
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case ListeningForWakeword:
		return "listening_for_wakeword"
	case RecordingCommand:
		return "recording_command"
	case Processing:
		return "processing"
	case Cooldown:
		return "cooldown"
	}

	return "unknown"
}

// pipelineState is shared by the capture loop and the command task. Every
// change is a compare-and-swap from the state the caller expects, so a
// transition can never skip or repeat a step of the cycle.
type pipelineState struct {
	v atomic.Int32
}

func (p *pipelineState) Load() State {
	return State(p.v.Load())
}

func (p *pipelineState) Transition(from, to State) bool {
	return p.v.CompareAndSwap(int32(from), int32(to))
}
