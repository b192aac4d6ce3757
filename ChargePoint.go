package main

import (
	"station_controls/controls"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/firmware"
)

type ChargePoint struct {
	status            core.ChargePointStatus
	errorCode         core.ChargePointErrorCode
	diagnosticsStatus firmware.DiagnosticsStatus
	firmwareStatus    firmware.FirmwareStatus
	connectors        map[int]*Connector // No assumptions about the # of connectors
	transactions      map[int]*Transaction
	profiles          controls.Profile
	controls          *controls.Registry
}

func NewChargePoint() *ChargePoint {
	return &ChargePoint{
		status:       core.ChargePointStatusAvailable,
		connectors:   map[int]*Connector{},
		transactions: map[int]*Transaction{},
	}
}

func (cp *ChargePoint) getConnector(id int) *Connector {
	ci, ok := cp.connectors[id]
	if !ok {
		ci = NewConnector()
		cp.connectors[id] = ci
	}
	return ci
}

// connectorAvailable reports whether a connector (or the whole station,
// for id 0) can currently take commands.
func (cp *ChargePoint) connectorAvailable(id int) bool {
	status := cp.status
	if id > 0 {
		if conn, ok := cp.connectors[id]; ok {
			status = conn.status
		}
	}
	return status != core.ChargePointStatusUnavailable && status != core.ChargePointStatusFaulted
}
