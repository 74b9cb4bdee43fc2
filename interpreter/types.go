package interpreter

import (
	"assistant-home-control/device_state"
)

type ActionKind string

const (
	TurnOn  ActionKind = "turn_on"
	TurnOff ActionKind = "turn_off"
)

// ActionRequest asks for one relay to be switched. Relay is -1 when the
// model's relay index could not be read.
type ActionRequest struct {
	Kind   ActionKind `json:"action"`
	Device string     `json:"device_ip"`
	Relay  int        `json:"relay_index"`
}

func (a ActionRequest) wellFormed() bool {
	return (a.Kind == TurnOn || a.Kind == TurnOff) && a.Device != "" && a.Relay >= 0
}

// TargetState is the relay state the action leads to.
func (a ActionRequest) TargetState() device_state.RelayState {
	return device_state.Target(a.Kind == TurnOn)
}

// Decision is what the model proposed for one command.
type Decision struct {
	Actions []ActionRequest
	Reply   string
}

// Control is one relay as presented to the model.
type Control struct {
	RelayIndex   int                     `json:"relayIndex"`
	Name         string                  `json:"name"`
	CurrentState device_state.RelayState `json:"currentState"`
}

// DeviceInfo joins a registered device with its live relay states.
type DeviceInfo struct {
	DeviceName string    `json:"deviceName"`
	Room       string    `json:"room"`
	IP         string    `json:"ip"`
	Controls   []Control `json:"controls"`
}

// Reconciliation splits the proposed actions by what happens to them.
type Reconciliation struct {
	// Actions still change something and should be dispatched.
	Actions []ActionRequest
	// Satisfied were dropped because the relay is already in that state.
	Satisfied []ActionRequest
	// Dropped were malformed, aimed at an unknown device or relay, or
	// repeated a relay already handled in the batch.
	Dropped  []ActionRequest
	Proposed int
}

// AllSatisfied is true when the model wanted to act but every action was
// already in effect.
func (r Reconciliation) AllSatisfied() bool {
	return r.Proposed > 0 && len(r.Satisfied) == r.Proposed
}
