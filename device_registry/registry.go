package device_registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const DefaultFile = "devices.json"

type registryImpl struct {
	fileSys afero.Fs
	path    string
}

type Config struct {
	FileSys afero.Fs
	Path    string
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	path := cfg.Path
	if path == "" {
		path = DefaultFile
	}

	return &registryImpl{
		fileSys: cfg.FileSys,
		path:    path,
	}, nil
}

// List re-reads the registry file on every call so edits made by the
// registry owner are picked up without a restart. A missing, empty or
// unparsable file reads as no devices.
func (r *registryImpl) List() ([]Device, error) {
	devices, err := r.read()
	if err != nil {
		return nil, err
	}

	out := make([]Device, 0, len(devices))
	for addr, d := range devices {
		if d.IP == "" {
			d.IP = addr
		}

		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].IP < out[j].IP
	})

	return out, nil
}

func (r *registryImpl) Get(addr string) (Device, bool, error) {
	devices, err := r.read()
	if err != nil {
		return Device{}, false, err
	}

	d, ok := devices[addr]
	if ok && d.IP == "" {
		d.IP = addr
	}

	return d, ok, nil
}

func (r *registryImpl) read() (map[string]Device, error) {
	content, err := afero.ReadFile(r.fileSys, r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Device{}, nil
		}

		return nil, fmt.Errorf("reading %s: %w", r.path, err)
	}

	if len(content) == 0 {
		return map[string]Device{}, nil
	}

	devices := make(map[string]Device)
	if err := json.Unmarshal(content, &devices); err != nil {
		log.Error().Err(err).Str("file", r.path).Msg("error parsing device registry")
		return map[string]Device{}, nil
	}

	return devices, nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
