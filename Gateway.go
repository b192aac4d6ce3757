package main

import (
	"fmt"
	"strconv"
	"time"

	ocpp16 "github.com/lorenzodonini/ocpp-go/ocpp1.6"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/smartcharging"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/types"

	"station_controls/bus"
	"station_controls/controls"
)

const (
	configKeyConnectors = "NumberOfConnectors"
	configKeyProfiles   = "SupportedFeatureProfiles"

	// IdTag presented on remote start requests issued by the control plane.
	controlIdTag = "central"
)

// Gateway bridges the controls package onto a live OCPP 1.6 central
// system. Telemetry and availability reads come from the handler's state;
// commands go out over the wire and block until the charge point confirms
// or the timeout fires.
type Gateway struct {
	centralSystem ocpp16.CentralSystem
	handler       *CentralSystemHandler
	restore       controls.RestoreStore
	updates       *bus.Bus
	timeout       time.Duration

	// Connector count assumed when the charge point does not report one.
	defaultConnectors int
}

func NewGateway(centralSystem ocpp16.CentralSystem, handler *CentralSystemHandler, restore controls.RestoreStore, updates *bus.Bus) *Gateway {
	return &Gateway{
		centralSystem:     centralSystem,
		handler:           handler,
		restore:           restore,
		updates:           updates,
		timeout:           30 * time.Second,
		defaultConnectors: 1,
	}
}

func (g *Gateway) SetTimeout(timeout time.Duration) { g.timeout = timeout }

// Provision interrogates a freshly connected charge point for its
// connector count and supported feature profiles, then builds and wires
// its control registry. Called once per connection.
func (g *Gateway) Provision(chargePointId string) error {
	connectors := g.defaultConnectors
	var profiles controls.Profile

	ch := make(chan dispatchResult, 1)
	e := g.centralSystem.GetConfiguration(chargePointId, func(confirmation *core.GetConfigurationConfirmation, err error) {
		if err != nil {
			ch <- dispatchResult{err: err}
			return
		}
		for _, key := range confirmation.ConfigurationKey {
			if key.Value == nil {
				continue
			}
			switch key.Key {
			case configKeyConnectors:
				if n, err := strconv.Atoi(*key.Value); err == nil {
					connectors = n
				}
			case configKeyProfiles:
				profiles = controls.ParseProfiles(*key.Value)
			}
		}
		ch <- dispatchResult{accepted: true}
	}, []string{configKeyConnectors, configKeyProfiles})
	if e != nil {
		return e
	}
	if _, err := g.await(ch, core.GetConfigurationFeatureName); err != nil {
		logDefault(chargePointId, core.GetConfigurationFeatureName).Errorf("error on request: %v", err)
	}

	g.handler.SetProfiles(chargePointId, profiles)

	registry, err := controls.NewRegistry(chargePointId, connectors, g, g.restore)
	if err != nil {
		return err
	}
	g.handler.SetControls(chargePointId, registry)
	registry.Start(g.updates)

	logDefault(chargePointId, "provision").Infof("registered %v controls for %v connectors", len(registry.Instances()), connectors)
	return nil
}

// ------------- controls.StationGateway -------------

func (g *Gateway) IsAvailable(stationId string, connectorId int) bool {
	return g.handler.Available(stationId, connectorId)
}

func (g *Gateway) Metric(stationId string, connectorId int, key string) (string, bool) {
	return g.handler.Metric(stationId, connectorId, key)
}

func (g *Gateway) CapabilityFlags(stationId string) controls.Profile {
	return g.handler.Profiles(stationId)
}

func (g *Gateway) DispatchCommand(stationId string, command string, state bool, connectorId int) (bool, error) {
	switch command {
	case controls.ActionReset:
		return g.reset(stationId)
	case controls.ActionUnlock:
		return g.unlock(stationId, connectorId)
	case controls.ActionChargeStart:
		return g.remoteStart(stationId, connectorId)
	case controls.ActionChargeStop:
		return g.remoteStop(stationId, connectorId)
	case controls.ActionAvailability:
		return g.changeAvailability(stationId, connectorId, state)
	}
	return false, fmt.Errorf("unknown command %v", command)
}

func (g *Gateway) SetNumericTarget(stationId string, target controls.NumericTarget, value float64, connectorId int) (bool, error) {
	unit := types.ChargingRateUnitAmperes
	if target == controls.TargetWatts {
		unit = types.ChargingRateUnitWatts
	}
	purpose := types.ChargingProfilePurposeTxDefaultProfile
	if connectorId == 0 {
		purpose = types.ChargingProfilePurposeChargePointMaxProfile
	}
	profile := &types.ChargingProfile{
		ChargingProfileId:      1,
		StackLevel:             0,
		ChargingProfilePurpose: purpose,
		ChargingProfileKind:    types.ChargingProfileKindAbsolute,
		ChargingSchedule:       types.NewChargingSchedule(unit, types.NewChargingSchedulePeriod(0, value)),
	}

	ch := make(chan dispatchResult, 1)
	e := g.centralSystem.SetChargingProfile(stationId, func(confirmation *smartcharging.SetChargingProfileConfirmation, err error) {
		if err != nil {
			ch <- dispatchResult{err: err}
			return
		}
		ch <- dispatchResult{accepted: confirmation.Status == smartcharging.ChargingProfileStatusAccepted}
	}, connectorId, profile)
	if e != nil {
		return false, e
	}
	return g.await(ch, smartcharging.SetChargingProfileFeatureName)
}

// ------------- command plumbing -------------

type dispatchResult struct {
	accepted bool
	err      error
}

func (g *Gateway) await(ch chan dispatchResult, feature string) (bool, error) {
	select {
	case res := <-ch:
		return res.accepted, res.err
	case <-time.After(g.timeout):
		return false, fmt.Errorf("no confirmation for %v within %v", feature, g.timeout)
	}
}

func (g *Gateway) reset(stationId string) (bool, error) {
	ch := make(chan dispatchResult, 1)
	e := g.centralSystem.Reset(stationId, func(confirmation *core.ResetConfirmation, err error) {
		if err != nil {
			ch <- dispatchResult{err: err}
			return
		}
		ch <- dispatchResult{accepted: confirmation.Status == core.ResetStatusAccepted}
	}, core.ResetTypeSoft)
	if e != nil {
		return false, e
	}
	return g.await(ch, core.ResetFeatureName)
}

func (g *Gateway) unlock(stationId string, connectorId int) (bool, error) {
	ch := make(chan dispatchResult, 1)
	e := g.centralSystem.UnlockConnector(stationId, func(confirmation *core.UnlockConnectorConfirmation, err error) {
		if err != nil {
			ch <- dispatchResult{err: err}
			return
		}
		ch <- dispatchResult{accepted: confirmation.Status == core.UnlockStatusUnlocked}
	}, connectorId)
	if e != nil {
		return false, e
	}
	return g.await(ch, core.UnlockConnectorFeatureName)
}

func (g *Gateway) remoteStart(stationId string, connectorId int) (bool, error) {
	ch := make(chan dispatchResult, 1)
	e := g.centralSystem.RemoteStartTransaction(stationId, func(confirmation *core.RemoteStartTransactionConfirmation, err error) {
		if err != nil {
			ch <- dispatchResult{err: err}
			return
		}
		ch <- dispatchResult{accepted: confirmation.Status == types.RemoteStartStopStatusAccepted}
	}, controlIdTag, func(request *core.RemoteStartTransactionRequest) {
		if connectorId > 0 {
			request.ConnectorId = &connectorId
		}
	})
	if e != nil {
		return false, e
	}
	return g.await(ch, core.RemoteStartTransactionFeatureName)
}

func (g *Gateway) remoteStop(stationId string, connectorId int) (bool, error) {
	transactionId, ok := g.handler.CurrentTransaction(stationId, connectorId)
	if !ok {
		return false, fmt.Errorf("no transaction in progress on connector %v", connectorId)
	}
	ch := make(chan dispatchResult, 1)
	e := g.centralSystem.RemoteStopTransaction(stationId, func(confirmation *core.RemoteStopTransactionConfirmation, err error) {
		if err != nil {
			ch <- dispatchResult{err: err}
			return
		}
		ch <- dispatchResult{accepted: confirmation.Status == types.RemoteStartStopStatusAccepted}
	}, transactionId)
	if e != nil {
		return false, e
	}
	return g.await(ch, core.RemoteStopTransactionFeatureName)
}

func (g *Gateway) changeAvailability(stationId string, connectorId int, operative bool) (bool, error) {
	availabilityType := core.AvailabilityTypeOperative
	if !operative {
		availabilityType = core.AvailabilityTypeInoperative
	}
	ch := make(chan dispatchResult, 1)
	e := g.centralSystem.ChangeAvailability(stationId, func(confirmation *core.ChangeAvailabilityConfirmation, err error) {
		if err != nil {
			ch <- dispatchResult{err: err}
			return
		}
		accepted := confirmation.Status == core.AvailabilityStatusAccepted ||
			confirmation.Status == core.AvailabilityStatusScheduled
		ch <- dispatchResult{accepted: accepted}
	}, connectorId, availabilityType)
	if e != nil {
		return false, e
	}
	return g.await(ch, core.ChangeAvailabilityFeatureName)
}
