package device_api

import "context"

type DeviceAPI interface {
	// Info polls a device for its relay count and current relay states.
	Info(ctx context.Context, addr string) (*Info, error)
	// SetRelay switches one relay "on" or "off" and returns the device's reply.
	SetRelay(ctx context.Context, addr string, relay int, state string) (string, error)
}

type RelayStatus struct {
	Relay int    `json:"relay"`
	State string `json:"state"`
}

type Info struct {
	NumRelays int           `json:"numRelays"`
	Status    []RelayStatus `json:"status"`
}
