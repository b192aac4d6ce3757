package controls

import "fmt"

// Expand produces every control instance of a station: the Cartesian
// product of the compiled-in descriptors and the connector indices each of
// them applies to.
//
//   - per-connector momentaries: connectors 0..connectorCount inclusive
//     (0 is the station itself)
//   - station-level momentaries: connector 0 only
//   - toggles and numeric settings: connectors 1..connectorCount
//
// Ordering is descriptor declaration order, then ascending connector
// index, so registration is deterministic.
func Expand(stationId string, connectorCount int, gateway StationGateway, restore RestoreStore) ([]*ControlInstance, error) {
	var instances []*ControlInstance

	for i := range buttons {
		desc := &buttons[i]
		if !desc.PerConnector {
			instances = append(instances, newInstance(stationId, 0, desc, gateway, restore))
			continue
		}
		if connectorCount < 1 {
			return nil, &ConfigurationError{
				Reason: fmt.Sprintf("descriptor %v needs at least one connector, got %v", desc.Key, connectorCount),
			}
		}
		for conn := 0; conn <= connectorCount; conn++ {
			instances = append(instances, newInstance(stationId, conn, desc, gateway, restore))
		}
	}

	for _, group := range [][]ControlDescriptor{switches, numbers} {
		for i := range group {
			desc := &group[i]
			if connectorCount < 1 {
				return nil, &ConfigurationError{
					Reason: fmt.Sprintf("descriptor %v needs at least one connector, got %v", desc.Key, connectorCount),
				}
			}
			for conn := 1; conn <= connectorCount; conn++ {
				instances = append(instances, newInstance(stationId, conn, desc, gateway, restore))
			}
		}
	}

	return instances, nil
}
