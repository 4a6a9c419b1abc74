package safety

// ActuatorID identifies one relay-controlled actuator.
type ActuatorID string

const (
	HeaterPrimary   ActuatorID = "heater_primary"
	HeaterSecondary ActuatorID = "heater_secondary"
	FanExhaust      ActuatorID = "fan_exhaust"
	FanCirculation  ActuatorID = "fan_circulation"
	Pump            ActuatorID = "pump"
	Light           ActuatorID = "light"
)

// AllActuators lists every actuator under interlock control.
var AllActuators = []ActuatorID{
	HeaterPrimary, HeaterSecondary,
	FanExhaust, FanCirculation,
	Pump, Light,
}

// State is the commanded relay state.
type State string

const (
	StateOff State = "off"
	StateOn  State = "on"
)

// Group is an interlock group: a set of actuators sharing one
// cycle-time gate. Paired units (the two heaters, the two fans) share
// a single lever per functional role to prevent thrashing.
type Group string

const (
	GroupHeat  Group = "heat"
	GroupVent  Group = "vent"
	GroupPump  Group = "pump"
	GroupLight Group = "light"
)

var actuatorGroups = map[ActuatorID]Group{
	HeaterPrimary:   GroupHeat,
	HeaterSecondary: GroupHeat,
	FanExhaust:      GroupVent,
	FanCirculation:  GroupVent,
	Pump:            GroupPump,
	Light:           GroupLight,
}

// GroupOf returns the interlock group an actuator belongs to.
func GroupOf(id ActuatorID) Group {
	return actuatorGroups[id]
}

// Record is the authoritative state of one actuator. The group
// cycle-time clock lives at the group level; LastGroupChangeMs mirrors
// it for reporting.
type Record struct {
	ID                ActuatorID `json:"id"`
	State             State      `json:"state"`
	Group             Group      `json:"group"`
	LastGroupChangeMs int64      `json:"last_group_change_ms"`
	OnSinceMs         int64      `json:"on_since_ms"`
}

// RejectReason explains why a requested state change was not applied.
type RejectReason string

const (
	ReasonNone            RejectReason = ""
	ReasonCycleTooSoon    RejectReason = "cycle_too_soon"
	ReasonMutualExclusion RejectReason = "mutual_exclusion"
	ReasonRuntimeExceeded RejectReason = "runtime_exceeded"
)

// Result reports the outcome of a RequestChange call. NoOp is set when
// the desired state already matched and nothing was touched.
type Result struct {
	Applied bool         `json:"applied"`
	NoOp    bool         `json:"no_op,omitempty"`
	Reason  RejectReason `json:"reason,omitempty"`
}

// CommandLogEntry records one applied or rejected actuator command for
// external reporting.
type CommandLogEntry struct {
	TickMs   int64        `json:"tick_ms"`
	Actuator ActuatorID   `json:"actuator"`
	Desired  State        `json:"desired"`
	Applied  bool         `json:"applied"`
	Forced   bool         `json:"forced,omitempty"`
	Reason   RejectReason `json:"reason,omitempty"`
}

// ActuatorTransport receives commanded relay writes. Implementations
// either drive real relays or record writes for tests; a write either
// completes or returns a bounded error, it never blocks indefinitely.
type ActuatorTransport interface {
	Write(id ActuatorID, on bool) error
}

// NopTransport discards writes. Used when hardware is disabled.
type NopTransport struct{}

func (NopTransport) Write(ActuatorID, bool) error { return nil }
