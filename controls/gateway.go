package controls

import "strings"

// Profile is the bitset of OCPP feature profiles a charge point reported
// support for.
type Profile uint32

const (
	ProfileCore Profile = 1 << iota
	ProfileFirmwareManagement
	ProfileSmartCharging
	ProfileReservation
	ProfileRemoteTrigger
	ProfileLocalAuthList
)

var profileNames = map[string]Profile{
	"Core":               ProfileCore,
	"FirmwareManagement": ProfileFirmwareManagement,
	"SmartCharging":      ProfileSmartCharging,
	"Reservation":        ProfileReservation,
	"RemoteTrigger":      ProfileRemoteTrigger,
	"LocalAuthList":      ProfileLocalAuthList,
}

// ParseProfiles converts the comma separated SupportedFeatureProfiles
// configuration value into a Profile bitset. Unknown names are ignored.
func ParseProfiles(csv string) Profile {
	var p Profile
	for _, name := range strings.Split(csv, ",") {
		p |= profileNames[strings.TrimSpace(name)]
	}
	return p
}

// StationGateway is the command and telemetry side of a connected charge
// point. The controls package only ever reads from it; dispatching a
// command is the single way it causes anything to happen on the wire.
//
// DispatchCommand blocks until the charge point confirms or the gateway
// times out. The boolean result follows the charger convention: true means
// the command was accepted. For commands shared between the on and off
// side of a toggle the state argument is the requested end state.
type StationGateway interface {
	IsAvailable(stationId string, connectorId int) bool
	Metric(stationId string, connectorId int, key string) (string, bool)
	CapabilityFlags(stationId string) Profile
	DispatchCommand(stationId string, command string, state bool, connectorId int) (bool, error)
	SetNumericTarget(stationId string, target NumericTarget, value float64, connectorId int) (bool, error)
}

// RestoreStore hands back the last persisted value of a numeric setting,
// keyed by control identity. Treated as an opaque external store.
type RestoreStore interface {
	LastValue(identity string) (float64, bool)
}
