package controls

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// IntentKind is the interaction a caller requests on a control instance.
type IntentKind int

const (
	IntentPress IntentKind = iota
	IntentTurnOn
	IntentTurnOff
	IntentSetValue
)

// Intent is one user interaction. Build it with Press, TurnOn, TurnOff or
// SetValue rather than by hand.
type Intent struct {
	Kind  IntentKind
	Value float64
}

func Press() Intent { return Intent{Kind: IntentPress} }

func TurnOn() Intent { return Intent{Kind: IntentTurnOn} }

func TurnOff() Intent { return Intent{Kind: IntentTurnOff} }

func SetValue(v float64) Intent { return Intent{Kind: IntentSetValue, Value: v} }

// ControlInstance is one live realization of a descriptor on a specific
// connector. The descriptor is shared and read-only; the instance owns its
// current value exclusively.
//
// Callers must serialize interactions on a single instance: OnInteract is
// not safe for concurrent use on the same instance. The current value
// itself is guarded internally, because notification-driven re-derivation
// runs on the registry's goroutine while an interaction may be in flight.
// Different instances share no mutable state and may be driven
// concurrently.
type ControlInstance struct {
	StationId   string
	ConnectorId int
	Descriptor  *ControlDescriptor

	gateway  StationGateway
	identity string

	mu        sync.Mutex
	boolValue bool
	numValue  float64
}

func newInstance(stationId string, connectorId int, desc *ControlDescriptor, gateway StationGateway, restore RestoreStore) *ControlInstance {
	ci := &ControlInstance{
		StationId:   stationId,
		ConnectorId: connectorId,
		Descriptor:  desc,
		gateway:     gateway,
		identity: strings.Join([]string{
			desc.Kind.Category(), stationId, strconv.Itoa(connectorId), desc.Key,
		}, "."),
	}
	switch desc.Kind {
	case Toggle:
		ci.boolValue = desc.DefaultState
	case NumericSetting:
		ci.numValue = desc.InitialValue
		if restore != nil {
			if v, ok := restore.LastValue(ci.identity); ok {
				ci.numValue = v
			}
		}
	}
	return ci
}

// Identity is the stable composite key used for external registration,
// unique across the whole control set of a station.
func (ci *ControlInstance) Identity() string { return ci.identity }

// IsAvailable asks the gateway whether the control is interactive right
// now. Momentary controls are keyed at the station identity, everything
// else at its connector. Never cached.
func (ci *ControlInstance) IsAvailable() bool {
	if ci.Descriptor.Kind == Momentary {
		return ci.gateway.IsAvailable(ci.StationId, 0)
	}
	return ci.gateway.IsAvailable(ci.StationId, ci.ConnectorId)
}

// State reports the on/off state of a toggle, re-deriving it from
// telemetry first when the descriptor is metric-backed.
func (ci *ControlInstance) State() bool {
	if ci.Descriptor.Kind == Toggle && ci.Descriptor.MetricKey != "" {
		ci.Reevaluate()
	}
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.boolValue
}

// Value reports the current target of a numeric setting.
func (ci *ControlInstance) Value() float64 {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.numValue
}

// CurrentValue is the kind-erased value exposed to the host framework:
// bool for toggles, float64 for numeric settings, nil for momentaries.
func (ci *ControlInstance) CurrentValue() interface{} {
	switch ci.Descriptor.Kind {
	case Toggle:
		return ci.State()
	case NumericSetting:
		return ci.Value()
	default:
		return nil
	}
}

// Reevaluate re-derives the state of a metric-backed toggle from the
// gateway's telemetry. An absent metric counts as not matching. Other
// control kinds keep their last value untouched.
func (ci *ControlInstance) Reevaluate() {
	desc := ci.Descriptor
	if desc.Kind != Toggle || desc.MetricKey == "" {
		return
	}
	value, ok := ci.gateway.Metric(ci.StationId, ci.ConnectorId, desc.MetricKey)
	ci.setBool(ok && matches(desc.MatchingValues, value))
}

// setBool guards the value against the notification goroutine.
func (ci *ControlInstance) setBool(v bool) {
	ci.mu.Lock()
	ci.boolValue = v
	ci.mu.Unlock()
}

// OnExternalNotification is the change-notification hook: a cheap
// re-derivation with no side effects beyond the metric read.
func (ci *ControlInstance) OnExternalNotification() { ci.Reevaluate() }

// OnInteract resolves a user intent into charger commands. Errors follow
// the taxonomy in errors.go; on any failure the current value is exactly
// what it was before the call, never an intermediate state.
func (ci *ControlInstance) OnInteract(intent Intent) error {
	if !ci.IsAvailable() {
		return ErrUnavailable
	}
	desc := ci.Descriptor
	switch {
	case desc.Kind == Momentary && intent.Kind == IntentPress:
		return ci.press()
	case desc.Kind == Toggle && intent.Kind == IntentTurnOn:
		return ci.turnOn()
	case desc.Kind == Toggle && intent.Kind == IntentTurnOff:
		return ci.turnOff()
	case desc.Kind == NumericSetting && intent.Kind == IntentSetValue:
		return ci.setValue(intent.Value)
	}
	return fmt.Errorf("control %v does not accept that interaction", ci.identity)
}

func (ci *ControlInstance) press() error {
	accepted, err := ci.gateway.DispatchCommand(ci.StationId, ci.Descriptor.Action, true, ci.ConnectorId)
	if err != nil {
		return &DispatchError{Command: ci.Descriptor.Action, Cause: err}
	}
	if !accepted {
		return &DispatchError{Command: ci.Descriptor.Action}
	}
	return nil
}

func (ci *ControlInstance) turnOn() error {
	accepted, err := ci.gateway.DispatchCommand(ci.StationId, ci.Descriptor.OnAction, true, ci.ConnectorId)
	if err != nil {
		return &DispatchError{Command: ci.Descriptor.OnAction, Cause: err}
	}
	if !accepted {
		return &DispatchError{Command: ci.Descriptor.OnAction}
	}
	ci.setBool(true)
	return nil
}

func (ci *ControlInstance) turnOff() error {
	desc := ci.Descriptor
	if desc.OffAction == "" {
		// No off command exists; switching off trivially succeeds.
		ci.setBool(false)
		return nil
	}

	state := true
	if desc.OffAction == desc.OnAction {
		// Same command drives both directions, distinguished by payload.
		state = false
	}
	accepted, err := ci.gateway.DispatchCommand(ci.StationId, desc.OffAction, state, ci.ConnectorId)
	if err != nil {
		return &DispatchError{Command: desc.OffAction, Cause: err}
	}
	// Charger convention on the off path: an accepted response means the
	// toggle ended up off. Do not "fix" the inversion.
	ci.setBool(!accepted)
	if !accepted {
		return &DispatchError{Command: desc.OffAction}
	}
	return nil
}

func (ci *ControlInstance) setValue(v float64) error {
	desc := ci.Descriptor
	if v < desc.MinValue || v > desc.MaxValue {
		return fmt.Errorf("value %v outside range %v..%v of %v", v, desc.MinValue, desc.MaxValue, ci.identity)
	}
	if ci.gateway.CapabilityFlags(ci.StationId)&ProfileSmartCharging == 0 {
		return ErrCapabilityUnavailable
	}
	accepted, err := ci.gateway.SetNumericTarget(ci.StationId, desc.Target, v, ci.ConnectorId)
	if err != nil {
		return &DispatchError{Command: string(desc.Target), Cause: err}
	}
	if !accepted {
		return &DispatchError{Command: string(desc.Target)}
	}
	ci.mu.Lock()
	ci.numValue = v
	ci.mu.Unlock()
	return nil
}

func matches(values []string, v string) bool {
	for _, m := range values {
		if m == v {
			return true
		}
	}
	return false
}
