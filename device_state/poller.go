package device_state

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"assistant-home-control/clients/device_api"
	"assistant-home-control/device_registry"
)

// Poller refreshes the store from the devices' /info endpoint.
type Poller struct {
	registry device_registry.Interface
	client   device_api.DeviceAPI
	store    *Store
	interval time.Duration
}

type PollerConfig struct {
	Registry device_registry.Interface
	Client   device_api.DeviceAPI
	Store    *Store
	// Interval between background refreshes; zero disables Run's loop.
	Interval time.Duration
}

func NewPoller(cfg *PollerConfig) (*Poller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("client is nil")
	}

	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}

	return &Poller{
		registry: cfg.Registry,
		client:   cfg.Client,
		store:    cfg.Store,
		interval: cfg.Interval,
	}, nil
}

// PollDevice overwrites the device's entry with what it reports. On failure
// the previous entry is left untouched.
func (p *Poller) PollDevice(ctx context.Context, addr string) error {
	info, err := p.client.Info(ctx, addr)
	if err != nil {
		log.Warn().Str("device", addr).Err(err).Msg("could not poll device for status update")
		return err
	}

	relays := make(map[string]RelayState, len(info.Status))
	for _, status := range info.Status {
		relays[strconv.Itoa(status.Relay)] = parseState(status.State)
	}

	p.store.Replace(addr, relays)

	return nil
}

// PollAll polls every registered device once and returns how many answered.
func (p *Poller) PollAll(ctx context.Context) (int, error) {
	devices, err := p.registry.List()
	if err != nil {
		return 0, err
	}

	ok := 0
	for _, d := range devices {
		if ctx.Err() != nil {
			return ok, ctx.Err()
		}

		if p.PollDevice(ctx, d.IP) == nil {
			ok++
		}
	}

	log.Info().Int("devices", len(devices)).Int("answered", ok).Msg("device state poll complete")

	return ok, nil
}

// Run polls on the configured interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PollAll(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("device state poll failed")
			}
		}
	}
}

func parseState(s string) RelayState {
	switch RelayState(s) {
	case On:
		return On
	case Off:
		return Off
	default:
		return Unknown
	}
}
