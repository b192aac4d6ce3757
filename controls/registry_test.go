package controls

import (
	"testing"
	"time"

	"station_controls/bus"
)

func TestRegistryLookup(t *testing.T) {
	registry, err := NewRegistry("CP01", 2, &fakeGateway{}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, ok := registry.Lookup("button.CP01.0.reset"); !ok {
		t.Fatal("missing reset instance")
	}
	if _, ok := registry.Lookup("switch.CP01.3.charge_control"); ok {
		t.Fatal("connector 3 must not exist on a 2-connector station")
	}
}

func TestRegistryFollowsBusUpdates(t *testing.T) {
	gw := &fakeGateway{metrics: map[int]map[string]string{
		1: {MetricConnectorStatus: "Available"},
	}}
	registry, err := NewRegistry("CP01", 1, gw, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	updates := bus.New()
	registry.Start(updates)
	defer registry.Stop()

	ci, _ := registry.Lookup("switch.CP01.1.charge_control")
	if storedState(ci) {
		t.Fatal("expected charge control off before telemetry changes")
	}

	gw.setMetric(1, MetricConnectorStatus, "Charging")
	updates.Publish(bus.Update{ChargePointId: "CP01"})

	deadline := time.Now().Add(time.Second)
	for !storedState(ci) {
		if time.Now().After(deadline) {
			t.Fatal("registry never re-derived state after the bus update")
		}
		time.Sleep(time.Millisecond)
	}
}

// storedState reads the derived value without triggering a fresh
// re-derivation, so bus-driven updates stay observable.
func storedState(ci *ControlInstance) bool {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.boolValue
}

func TestRegistryIgnoresOtherStations(t *testing.T) {
	gw := &fakeGateway{metrics: map[int]map[string]string{
		1: {MetricConnectorStatus: "Charging"},
	}}
	registry, err := NewRegistry("CP01", 1, gw, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	updates := bus.New()
	registry.Start(updates)
	defer registry.Stop()

	ci, _ := registry.Lookup("switch.CP01.1.charge_control")
	updates.Publish(bus.Update{ChargePointId: "CP02"})

	time.Sleep(20 * time.Millisecond)
	if storedState(ci) {
		t.Fatal("update for another station must not trigger re-derivation")
	}
}

func TestConcurrentNotificationsAndInteractions(t *testing.T) {
	gw := &fakeGateway{
		dispatchResp: true,
		metrics: map[int]map[string]string{
			1: {MetricConnectorStatus: "Charging"},
		},
	}
	registry, err := NewRegistry("CP01", 1, gw, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	updates := bus.New()
	registry.Start(updates)
	defer registry.Stop()

	// Hammer the registry with telemetry updates while interacting with
	// the same instance; the derived value must stay guarded against the
	// notification goroutine.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 2000; i++ {
			updates.Publish(bus.Update{ChargePointId: "CP01"})
		}
		close(done)
	}()

	ci, _ := registry.Lookup("switch.CP01.1.charge_control")
	for i := 0; i < 200; i++ {
		if err := ci.OnInteract(TurnOn()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	<-done

	if !ci.State() {
		t.Fatal("expected charge control on")
	}
}
