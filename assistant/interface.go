package assistant

import (
	"context"

	"assistant-home-control/dispatcher"
	"assistant-home-control/interpreter"
)

// Interface is the processing stage of the pipeline: everything that happens
// to a command after it has been recorded.
type Interface interface {
	// HandleUtterance transcribes recorded audio and acts on it. A failed
	// transcription is returned so the caller can report it; nothing is
	// dispatched in that case.
	HandleUtterance(ctx context.Context, frames [][]int16, sampleRate int) error
	// HandleText acts on a command that is already text.
	HandleText(ctx context.Context, text string) (*Outcome, error)
}

// Outcome describes what one command led to.
type Outcome struct {
	Text           string
	Reply          string
	Reconciliation interpreter.Reconciliation
	Results        []dispatcher.Result
}
