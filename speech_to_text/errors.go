package speech_to_text

import "errors"

var ErrSpeechUnrecognized = errors.New("speech not recognized")
