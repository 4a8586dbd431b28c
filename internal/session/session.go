// Package session holds the client's view of the remote attack: the
// lifecycle phase, the running flag, the operator's selections and the
// discovered network facts. It performs no I/O.
package session

import "fmt"

// Phase is the attack lifecycle state as seen by the client
type Phase int

const (
	// PhaseIdle means no attack is running and no discovery is in flight
	PhaseIdle Phase = iota
	// PhaseDiscovering means a discovery request is in flight
	PhaseDiscovering
	// PhaseAttacking means the service reported a started attack and the
	// status poll is active
	PhaseAttacking
)

// String returns a human-readable name for the phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDiscovering:
		return "discovering"
	case PhaseAttacking:
		return "attacking"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Lease is one address the attack has acquired from the target server.
// Address is the natural key.
type Lease struct {
	Address         string `json:"ip"`
	HardwareAddress string `json:"mac"`
	// AcquiredAt is display-formatted by the service and never parsed
	AcquiredAt string `json:"time"`
}

// Interface is a network interface offered by the service
type Interface struct {
	Name    string `json:"name"`
	Address string `json:"ip"`
}

// Label formats the interface the way the picker shows it, e.g. "eth0 (10.0.0.2)"
func (i Interface) Label() string {
	if i.Address == "" {
		return i.Name
	}
	return fmt.Sprintf("%s (%s)", i.Name, i.Address)
}

// NetworkInfo holds discovered network facts. Every field is optional and
// set independently.
type NetworkInfo struct {
	ServerAddress string `json:"server_ip,omitempty"`
	RouterAddress string `json:"router_ip,omitempty"`
	SubnetMask    string `json:"subnet_mask,omitempty"`
	PoolStart     string `json:"dhcp_pool_start,omitempty"`
	PoolEnd       string `json:"dhcp_pool_end,omitempty"`
}

// IsZero reports whether no field is set
func (n NetworkInfo) IsZero() bool {
	return n == NetworkInfo{}
}

// Merge returns a copy of n with every non-empty field of other applied
func (n NetworkInfo) Merge(other NetworkInfo) NetworkInfo {
	if other.ServerAddress != "" {
		n.ServerAddress = other.ServerAddress
	}
	if other.RouterAddress != "" {
		n.RouterAddress = other.RouterAddress
	}
	if other.SubnetMask != "" {
		n.SubnetMask = other.SubnetMask
	}
	if other.PoolStart != "" {
		n.PoolStart = other.PoolStart
	}
	if other.PoolEnd != "" {
		n.PoolEnd = other.PoolEnd
	}
	return n
}

// PoolRange formats the pool as "start - end", or "" when the start is unknown
func (n NetworkInfo) PoolRange() string {
	if n.PoolStart == "" {
		return ""
	}
	end := n.PoolEnd
	if end == "" {
		end = "?"
	}
	return n.PoolStart + " - " + end
}

// Controls tracks which user controls are disabled because their gateway
// call is in flight
type Controls struct {
	DiscoverBusy   bool
	AttackBusy     bool
	ReleaseAllBusy bool
}

// Status is the status model: lifecycle phase, running flag and the
// operator's current selections
type Status struct {
	Phase         Phase
	Running       bool
	Text          string
	Interface     string
	ServerAddress string
	Network       NetworkInfo
	Controls      Controls
}

// NewStatus returns the initial status model
func NewStatus() Status {
	return Status{Phase: PhaseIdle, Text: "Idle"}
}

// InputsLocked reports whether the interface and server-address inputs
// are locked. They are locked for the whole Attacking phase and while a
// discover or start request is in flight.
func (s Status) InputsLocked() bool {
	return s.Phase == PhaseAttacking || s.lifecycleBusy()
}

// CanDiscover reports whether the discover control is enabled
func (s Status) CanDiscover() bool {
	return s.Phase == PhaseIdle && !s.lifecycleBusy()
}

// CanStart reports whether an attack may be started from this state
func (s Status) CanStart() bool {
	return s.Phase == PhaseIdle && !s.lifecycleBusy()
}

// CanStop reports whether a running attack may be stopped from this state
func (s Status) CanStop() bool {
	return s.Phase == PhaseAttacking && !s.Controls.AttackBusy
}

// lifecycleBusy reports whether a phase-changing request is in flight
func (s Status) lifecycleBusy() bool {
	return s.Controls.DiscoverBusy || s.Controls.AttackBusy
}
