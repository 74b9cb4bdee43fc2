package device_state

import (
	"strconv"
	"sync"
)

type RelayState string

const (
	On      RelayState = "on"
	Off     RelayState = "off"
	Unknown RelayState = "unknown"
)

// Target returns the state a turn_on (true) or turn_off (false) leads to.
func Target(on bool) RelayState {
	if on {
		return On
	}

	return Off
}

// Store is the last known state of every relay, keyed by device address and
// then relay index as a decimal string. It is eventually consistent with the
// hardware: a failed control call or an out-of-band switch leaves it stale
// until the next successful poll.
type Store struct {
	mu     sync.RWMutex
	states map[string]map[string]RelayState
}

func NewStore() *Store {
	return &Store{
		states: make(map[string]map[string]RelayState),
	}
}

// Get returns the relay's state and whether it has ever been observed.
func (s *Store) Get(addr string, relay int) (RelayState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[addr][strconv.Itoa(relay)]
	if !ok {
		return Unknown, false
	}

	return state, true
}

// Relays returns a copy of the device's relay states.
func (s *Store) Relays(addr string) map[string]RelayState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]RelayState, len(s.states[addr]))
	for k, v := range s.states[addr] {
		out[k] = v
	}

	return out
}

func (s *Store) Set(addr string, relay int, state RelayState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.states[addr] == nil {
		s.states[addr] = make(map[string]RelayState)
	}

	s.states[addr][strconv.Itoa(relay)] = state
}

// Replace overwrites everything known about one device.
func (s *Store) Replace(addr string, relays map[string]RelayState) {
	copied := make(map[string]RelayState, len(relays))
	for k, v := range relays {
		copied[k] = v
	}

	s.mu.Lock()
	s.states[addr] = copied
	s.mu.Unlock()
}

func (s *Store) Remove(addr string) {
	s.mu.Lock()
	delete(s.states, addr)
	s.mu.Unlock()
}

func (s *Store) Snapshot() map[string]map[string]RelayState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[string]RelayState, len(s.states))
	for addr, relays := range s.states {
		copied := make(map[string]RelayState, len(relays))
		for k, v := range relays {
			copied[k] = v
		}
		out[addr] = copied
	}

	return out
}
