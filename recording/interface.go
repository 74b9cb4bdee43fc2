package recording

// Interface keeps a copy of every captured utterance. Archiving is best
// effort and never fails the command it belongs to.
type Interface interface {
	Archive(frames [][]int16, sampleRate int) (string, error)
}
