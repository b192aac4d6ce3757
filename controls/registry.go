package controls

import (
	"station_controls/bus"
)

// Registry owns the full control instance set of one station, built once
// at setup. It is also the change-notification bridge: started against a
// bus it re-derives every instance whenever station telemetry changes.
type Registry struct {
	stationId  string
	instances  []*ControlInstance
	byIdentity map[string]*ControlInstance

	updates *bus.Bus
	ch      chan bus.Update
}

// NewRegistry expands the descriptor set for a station and indexes the
// resulting instances by identity. Fails with a ConfigurationError when
// the connector count cannot host the per-connector descriptors.
func NewRegistry(stationId string, connectorCount int, gateway StationGateway, restore RestoreStore) (*Registry, error) {
	instances, err := Expand(stationId, connectorCount, gateway, restore)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		stationId:  stationId,
		instances:  instances,
		byIdentity: make(map[string]*ControlInstance, len(instances)),
	}
	for _, ci := range instances {
		r.byIdentity[ci.Identity()] = ci
	}
	return r, nil
}

// Instances returns the registration-ordered instance list. Read-only.
func (r *Registry) Instances() []*ControlInstance { return r.instances }

// Lookup finds an instance by its composite identity.
func (r *Registry) Lookup(identity string) (*ControlInstance, bool) {
	ci, ok := r.byIdentity[identity]
	return ci, ok
}

// ReevaluateAll re-derives every instance. No ordering guarantee between
// instances; each re-derivation is cheap and only reads telemetry.
func (r *Registry) ReevaluateAll() {
	for _, ci := range r.instances {
		ci.OnExternalNotification()
	}
}

// Start subscribes the registry to data-updated broadcasts. Updates for
// other stations are ignored.
func (r *Registry) Start(updates *bus.Bus) {
	r.updates = updates
	r.ch = updates.Subscribe()
	go func() {
		for u := range r.ch {
			if u.ChargePointId == "" || u.ChargePointId == r.stationId {
				r.ReevaluateAll()
			}
		}
	}()
}

// Stop detaches the registry from the bus. Instances stay usable but no
// longer follow telemetry on their own.
func (r *Registry) Stop() {
	if r.updates != nil {
		r.updates.Unsubscribe(r.ch)
		r.updates = nil
	}
}
