package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"assistant-home-control/clients/device_api"
	"assistant-home-control/device_state"
	"assistant-home-control/interpreter"
	"assistant-home-control/notify"
)

// ErrDeviceUnreachable covers transport failures and non-2xx answers from a
// device. It is never retried.
var ErrDeviceUnreachable = errors.New("device unreachable")

type Interface interface {
	Dispatch(ctx context.Context, action interpreter.ActionRequest) (string, error)
	DispatchAll(ctx context.Context, actions []interpreter.ActionRequest) []Result
	// Refresh asks observers to re-read device states when any result
	// succeeded, and reports whether it did.
	Refresh(results []Result) bool
}

type Result struct {
	Action  interpreter.ActionRequest
	Message string
	Err     error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// AnySucceeded reports whether at least one relay was switched.
func AnySucceeded(results []Result) bool {
	for _, r := range results {
		if r.OK() {
			return true
		}
	}

	return false
}

type dispatcherImpl struct {
	client   device_api.DeviceAPI
	store    *device_state.Store
	notifier notify.Interface
}

type Config struct {
	Client   device_api.DeviceAPI
	Store    *device_state.Store
	Notifier notify.Interface
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("client is nil")
	}

	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}

	if cfg.Notifier == nil {
		return nil, fmt.Errorf("notifier is nil")
	}

	return &dispatcherImpl{
		client:   cfg.Client,
		store:    cfg.Store,
		notifier: cfg.Notifier,
	}, nil
}

// Dispatch switches one relay and records the new state on success.
func (d *dispatcherImpl) Dispatch(ctx context.Context, action interpreter.ActionRequest) (string, error) {
	state := action.TargetState()

	msg, err := d.client.SetRelay(ctx, action.Device, action.Relay, string(state))
	if err != nil {
		log.Error().
			Str("device", action.Device).
			Int("relay", action.Relay).
			Str("state", string(state)).
			Err(err).
			Msg("error controlling relay")

		return "", fmt.Errorf("%w: %s relay %d: %v", ErrDeviceUnreachable, action.Device, action.Relay, err)
	}

	d.store.Set(action.Device, action.Relay, state)

	log.Info().
		Str("device", action.Device).
		Int("relay", action.Relay).
		Str("state", string(state)).
		Msg("relay switched")

	return msg, nil
}

// DispatchAll attempts every action regardless of earlier failures. Callers
// publish the refresh with Refresh once they have answered the user.
func (d *dispatcherImpl) DispatchAll(ctx context.Context, actions []interpreter.ActionRequest) []Result {
	results := make([]Result, 0, len(actions))

	for _, action := range actions {
		msg, err := d.Dispatch(ctx, action)
		results = append(results, Result{Action: action, Message: msg, Err: err})
	}

	return results
}

func (d *dispatcherImpl) Refresh(results []Result) bool {
	if !AnySucceeded(results) {
		return false
	}

	d.notifier.Publish(notify.RefreshStates())

	return true
}
