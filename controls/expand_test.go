package controls

import (
	"errors"
	"testing"
)

func TestExpandInstanceCounts(t *testing.T) {
	instances, err := Expand("CP01", 3, &fakeGateway{}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	perKey := map[string][]int{}
	for _, ci := range instances {
		perKey[ci.Descriptor.Key] = append(perKey[ci.Descriptor.Key], ci.ConnectorId)
	}

	expected := map[string][]int{
		"reset":           {0},
		"unlock":          {0, 1, 2, 3},
		"charge_control":  {1, 2, 3},
		"availability":    {1, 2, 3},
		"maximum_current": {1, 2, 3},
		"maximum_power":   {1, 2, 3},
	}
	for key, connectors := range expected {
		got := perKey[key]
		if len(got) != len(connectors) {
			t.Fatalf("descriptor %v: expected connectors %v, got %v", key, connectors, got)
		}
		for i, conn := range connectors {
			if got[i] != conn {
				t.Fatalf("descriptor %v: expected connectors %v, got %v", key, connectors, got)
			}
		}
	}
}

func TestExpandIdentitiesUnique(t *testing.T) {
	instances, err := Expand("CP01", 4, &fakeGateway{}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	seen := map[string]bool{}
	for _, ci := range instances {
		identity := ci.Identity()
		if seen[identity] {
			t.Fatalf("duplicate identity %v", identity)
		}
		seen[identity] = true
	}
}

func TestExpandDeterministicOrdering(t *testing.T) {
	first, err := Expand("CP01", 2, &fakeGateway{}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := Expand("CP01", 2, &fakeGateway{}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("instance counts differ: %v vs %v", len(first), len(second))
	}
	for i := range first {
		if first[i].Identity() != second[i].Identity() {
			t.Fatalf("ordering differs at %v: %v vs %v", i, first[i].Identity(), second[i].Identity())
		}
	}

	// Momentaries come first, in declaration order, ascending connector.
	if first[0].Descriptor.Key != "reset" || first[0].ConnectorId != 0 {
		t.Fatalf("expected reset@0 first, got %v", first[0].Identity())
	}
	if first[1].Descriptor.Key != "unlock" || first[1].ConnectorId != 0 {
		t.Fatalf("expected unlock@0 second, got %v", first[1].Identity())
	}
}

func TestExpandRejectsInvalidConnectorCount(t *testing.T) {
	_, err := Expand("CP01", 0, &fakeGateway{}, nil)
	if err == nil {
		t.Fatal("expected a configuration error for connector count 0")
	}
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
}
