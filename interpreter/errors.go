package interpreter

import "errors"

// ErrInterpretation covers a failed model call and any response that is not
// the expected JSON object.
var ErrInterpretation = errors.New("could not interpret command")
