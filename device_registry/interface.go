package device_registry

// Interface is the read side of the device registry. Devices are added,
// renamed and removed elsewhere; this package only reads the registry file.
type Interface interface {
	List() ([]Device, error)
	Get(addr string) (Device, bool, error)
}

// Device is a registered relay board, keyed by its network address.
type Device struct {
	Name       string            `json:"name"`
	IP         string            `json:"ip"`
	Room       string            `json:"room"`
	NumRelays  int               `json:"numRelays"`
	RelayNames map[string]string `json:"relayNames"`
}

// HasRelay reports whether relay is a valid index on the device.
func (d Device) HasRelay(relay int) bool {
	if relay < 0 {
		return false
	}

	if relay < d.NumRelays {
		return true
	}

	_, ok := d.RelayNames[itoa(relay)]
	return ok
}
