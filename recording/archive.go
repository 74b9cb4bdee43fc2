package recording

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	bitDepth    = 16
	numChannels = 1
	pcmFormat   = 1
)

type archiveImpl struct {
	fileSys afero.Fs
	dir     string
	now     func() time.Time
}

type Config struct {
	FileSys afero.Fs
	Dir     string
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}

	err := cfg.FileSys.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}

	return &archiveImpl{
		fileSys: cfg.FileSys,
		dir:     dir,
		now:     time.Now,
	}, nil
}

// Archive writes the frames as one 16-bit mono WAV at their native rate and
// returns the file name.
func (a *archiveImpl) Archive(frames [][]int16, sampleRate int) (string, error) {
	total := 0
	for _, frame := range frames {
		total += len(frame)
	}

	if total == 0 {
		return "", fmt.Errorf("nothing to archive")
	}

	data := make([]int, 0, total)
	for _, frame := range frames {
		for _, sample := range frame {
			data = append(data, int(sample))
		}
	}

	name := filepath.Join(a.dir, "utterance-"+strconv.FormatInt(a.now().UnixMilli(), 10)+".wav")

	file, err := a.fileSys.Create(name)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}

	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, bitDepth, numChannels, pcmFormat)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	err = encoder.Write(buf)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}

	err = encoder.Close()
	if err != nil {
		return "", fmt.Errorf("finishing %s: %w", name, err)
	}

	log.Debug().Str("file", name).Int("samples", total).Int("rate", sampleRate).Msg("utterance archived")

	return name, nil
}

type noopArchive struct{}

// NewNoop returns an archive that keeps nothing.
func NewNoop() Interface {
	return noopArchive{}
}

func (noopArchive) Archive([][]int16, int) (string, error) {
	return "", nil
}
