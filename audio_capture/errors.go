package audio_capture

import "errors"

// ErrHardwareUnavailable means no input device could be opened at any of the
// candidate sample rates. It is fatal at startup.
var ErrHardwareUnavailable = errors.New("audio hardware unavailable")
