package controls

import (
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
)

// ControlKind separates the three control surface categories a charge
// point exposes: one-shot buttons, boolean switches and bounded numeric
// settings.
type ControlKind int

const (
	Momentary ControlKind = iota
	Toggle
	NumericSetting
)

// Category is the registration namespace of the kind.
func (k ControlKind) Category() string {
	switch k {
	case Momentary:
		return "button"
	case Toggle:
		return "switch"
	default:
		return "number"
	}
}

func (k ControlKind) String() string {
	switch k {
	case Momentary:
		return "momentary"
	case Toggle:
		return "toggle"
	default:
		return "numeric"
	}
}

// NumericTarget picks which charging-rate command a numeric setting drives.
type NumericTarget string

const (
	TargetAmps  NumericTarget = "amps"
	TargetWatts NumericTarget = "watts"
)

// Command names understood by the station gateway.
const (
	ActionReset        = "reset"
	ActionUnlock       = "unlock"
	ActionChargeStart  = "charge_start"
	ActionChargeStop   = "charge_stop"
	ActionAvailability = "availability"
)

// MetricConnectorStatus is the telemetry key carrying the last reported
// OCPP status of a connector.
const MetricConnectorStatus = "status_connector"

// ControlDescriptor is the immutable definition of one control surface
// kind. Descriptors are shared by every connector instance and never
// mutated after process start.
type ControlDescriptor struct {
	Key   string
	Label string
	Kind  ControlKind

	// Momentary. PerConnector replicates the button for connector 0..N
	// instead of a single station-level instance.
	Action       string
	PerConnector bool

	// Toggle. An empty OffAction means switching off always succeeds
	// without a command. When OffAction equals OnAction the single
	// command takes an explicit boolean payload instead.
	OnAction       string
	OffAction      string
	MetricKey      string
	MatchingValues []string
	DefaultState   bool

	// NumericSetting.
	Unit         string
	MinValue     float64
	MaxValue     float64
	Step         float64
	InitialValue float64
	Target       NumericTarget
}

const (
	defaultMaxCurrent = 32
	defaultMaxPower   = 22000
)

var buttons = []ControlDescriptor{
	{
		Key:    "reset",
		Label:  "Reset",
		Kind:   Momentary,
		Action: ActionReset,
	},
	{
		Key:          "unlock",
		Label:        "Unlock",
		Kind:         Momentary,
		Action:       ActionUnlock,
		PerConnector: true,
	},
}

var switches = []ControlDescriptor{
	{
		Key:       "charge_control",
		Label:     "Charge Control",
		Kind:      Toggle,
		OnAction:  ActionChargeStart,
		OffAction: ActionChargeStop,
		MetricKey: MetricConnectorStatus,
		MatchingValues: []string{
			string(core.ChargePointStatusCharging),
			string(core.ChargePointStatusSuspendedEVSE),
			string(core.ChargePointStatusSuspendedEV),
		},
	},
	{
		Key:       "availability",
		Label:     "Availability",
		Kind:      Toggle,
		OnAction:  ActionAvailability,
		OffAction: ActionAvailability,
		MetricKey: MetricConnectorStatus,
		MatchingValues: []string{
			string(core.ChargePointStatusAvailable),
			string(core.ChargePointStatusPreparing),
		},
		DefaultState: true,
	},
}

var numbers = []ControlDescriptor{
	{
		Key:          "maximum_current",
		Label:        "Maximum Current",
		Kind:         NumericSetting,
		Unit:         "A",
		MinValue:     0,
		MaxValue:     defaultMaxCurrent,
		Step:         1,
		InitialValue: defaultMaxCurrent,
		Target:       TargetAmps,
	},
	{
		Key:          "maximum_power",
		Label:        "Maximum Power",
		Kind:         NumericSetting,
		Unit:         "W",
		MinValue:     0,
		MaxValue:     defaultMaxPower,
		Step:         1,
		InitialValue: defaultMaxPower,
		Target:       TargetWatts,
	},
}

// Descriptors returns the fixed, declaration-ordered descriptor list for a
// kind. The returned slice is shared and must be treated as read-only.
func Descriptors(kind ControlKind) []ControlDescriptor {
	switch kind {
	case Momentary:
		return buttons
	case Toggle:
		return switches
	default:
		return numbers
	}
}
