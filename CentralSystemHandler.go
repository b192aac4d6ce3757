package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/firmware"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/types"

	"encoding/json"
	"station_controls/bus"
	"station_controls/controls"
	"station_controls/notifier"
)

var (
	nextTransactionId = 0
)

// Transaction contains info about a charging transaction
type Transaction struct {
	id          int
	startTime   *types.DateTime
	endTime     *types.DateTime
	meterStart  int
	meterStop   int
	connectorId int
	idTag       string
}

func (ti *Transaction) hasTransactionEnded() bool {
	return ti.endTime != nil && !ti.endTime.IsZero()
}

// CentralSystemHandler keeps the live state of every connected charge
// point: connector statuses, meter values, transactions, supported
// profiles and the control registry built for it. OCPP callbacks mutate
// this state concurrently with reads from the control plane, so access
// goes through the mutex.
type CentralSystemHandler struct {
	mu           sync.RWMutex
	chargePoints map[string]*ChargePoint
	notification chan notifier.Notification
	updates      *bus.Bus
}

func NewCentralSystemHandler(updates *bus.Bus) *CentralSystemHandler {
	return &CentralSystemHandler{
		chargePoints: map[string]*ChargePoint{},
		notification: make(chan notifier.Notification),
		updates:      updates,
	}
}

func (handler *CentralSystemHandler) NotificationChannel() chan notifier.Notification {
	return handler.notification
}

func (handler *CentralSystemHandler) AddChargePoint(id string) {
	handler.mu.Lock()
	handler.chargePoints[id] = NewChargePoint()
	handler.mu.Unlock()
}

func (handler *CentralSystemHandler) RemoveChargePoint(id string) {
	handler.mu.Lock()
	cp, ok := handler.chargePoints[id]
	delete(handler.chargePoints, id)
	handler.mu.Unlock()
	if ok && cp.controls != nil {
		cp.controls.Stop()
	}
}

func (handler *CentralSystemHandler) SetProfiles(id string, profiles controls.Profile) {
	handler.mu.Lock()
	if cp, ok := handler.chargePoints[id]; ok {
		cp.profiles = profiles
	}
	handler.mu.Unlock()
}

func (handler *CentralSystemHandler) SetControls(id string, registry *controls.Registry) {
	handler.mu.Lock()
	if cp, ok := handler.chargePoints[id]; ok {
		cp.controls = registry
	}
	handler.mu.Unlock()
}

// ControlRegistry exposes the per-station control set to the command
// surface.
func (handler *CentralSystemHandler) ControlRegistry(id string) (*controls.Registry, bool) {
	handler.mu.RLock()
	defer handler.mu.RUnlock()
	cp, ok := handler.chargePoints[id]
	if !ok || cp.controls == nil {
		return nil, false
	}
	return cp.controls, true
}

// Available reports whether a station (connectorId 0) or one of its
// connectors is reachable and not faulted.
func (handler *CentralSystemHandler) Available(id string, connectorId int) bool {
	handler.mu.RLock()
	defer handler.mu.RUnlock()
	cp, ok := handler.chargePoints[id]
	if !ok {
		return false
	}
	return cp.connectorAvailable(connectorId)
}

// Metric returns the last telemetry value stored for a connector, station
// status when connectorId is 0.
func (handler *CentralSystemHandler) Metric(id string, connectorId int, key string) (string, bool) {
	handler.mu.RLock()
	defer handler.mu.RUnlock()
	cp, ok := handler.chargePoints[id]
	if !ok {
		return "", false
	}
	if connectorId == 0 {
		if key == controls.MetricConnectorStatus {
			return string(cp.status), true
		}
		return "", false
	}
	conn, ok := cp.connectors[connectorId]
	if !ok {
		return "", false
	}
	value, ok := conn.metrics[key]
	return value, ok
}

func (handler *CentralSystemHandler) Profiles(id string) controls.Profile {
	handler.mu.RLock()
	defer handler.mu.RUnlock()
	if cp, ok := handler.chargePoints[id]; ok {
		return cp.profiles
	}
	return 0
}

// CurrentTransaction returns the running transaction of a connector, if any.
func (handler *CentralSystemHandler) CurrentTransaction(id string, connectorId int) (int, bool) {
	handler.mu.RLock()
	defer handler.mu.RUnlock()
	cp, ok := handler.chargePoints[id]
	if !ok {
		return 0, false
	}
	conn, ok := cp.connectors[connectorId]
	if !ok || !conn.hasTransactionInProgress() {
		return 0, false
	}
	return conn.currentTransaction, true
}

func (handler *CentralSystemHandler) notify(topic string, chargePointId string, request interface{}) {
	var data = make(map[string]interface{})
	data["chargePointId"] = chargePointId

	bt, _ := json.Marshal(request)
	json.Unmarshal(bt, &data)

	handler.notification <- notifier.Notification{
		Topic: topic,
		Data:  data,
	}
}

// ------------- Core profile callbacks -------------

func (handler *CentralSystemHandler) OnAuthorize(chargePointId string, request *core.AuthorizeRequest) (confirmation *core.AuthorizeConfirmation, err error) {
	return core.NewAuthorizationConfirmation(types.NewIdTagInfo(types.AuthorizationStatusAccepted)), nil
}

func (handler *CentralSystemHandler) OnBootNotification(chargePointId string, request *core.BootNotificationRequest) (confirmation *core.BootNotificationConfirmation, err error) {
	handler.notify("boot.notification", chargePointId, request)
	return core.NewBootNotificationConfirmation(types.NewDateTime(time.Now()), defaultHeartbeatInterval, core.RegistrationStatusAccepted), nil
}

func (handler *CentralSystemHandler) OnDataTransfer(chargePointId string, request *core.DataTransferRequest) (confirmation *core.DataTransferConfirmation, err error) {
	handler.notify("data.transfer", chargePointId, request)
	return core.NewDataTransferConfirmation(core.DataTransferStatusAccepted), nil
}

func (handler *CentralSystemHandler) OnHeartbeat(chargePointId string, request *core.HeartbeatRequest) (confirmation *core.HeartbeatConfirmation, err error) {
	handler.notify("heartbeat", chargePointId, request)
	return core.NewHeartbeatConfirmation(types.NewDateTime(time.Now())), nil
}

func (handler *CentralSystemHandler) OnMeterValues(chargePointId string, request *core.MeterValuesRequest) (confirmation *core.MeterValuesConfirmation, err error) {
	handler.mu.Lock()
	info, ok := handler.chargePoints[chargePointId]
	if ok && request.ConnectorId > 0 {
		conn := info.getConnector(request.ConnectorId)
		for _, mv := range request.MeterValue {
			for _, sampled := range mv.SampledValue {
				conn.metrics[string(sampled.Measurand)] = sampled.Value
			}
		}
	}
	handler.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown charge point %v", chargePointId)
	}

	handler.updates.Publish(bus.Update{ChargePointId: chargePointId})
	handler.notify("meter.values", chargePointId, request)
	return core.NewMeterValuesConfirmation(), nil
}

func (handler *CentralSystemHandler) OnStatusNotification(chargePointId string, request *core.StatusNotificationRequest) (confirmation *core.StatusNotificationConfirmation, err error) {
	handler.mu.Lock()
	info, ok := handler.chargePoints[chargePointId]
	if ok {
		info.errorCode = request.ErrorCode
		if request.ConnectorId > 0 {
			connectorInfo := info.getConnector(request.ConnectorId)
			connectorInfo.status = request.Status
			connectorInfo.metrics[controls.MetricConnectorStatus] = string(request.Status)
		} else {
			info.status = request.Status
		}
	}
	handler.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown charge point %v", chargePointId)
	}

	handler.updates.Publish(bus.Update{ChargePointId: chargePointId})
	handler.notify("status.notification", chargePointId, request)
	return core.NewStatusNotificationConfirmation(), nil
}

func (handler *CentralSystemHandler) OnStartTransaction(chargePointId string, request *core.StartTransactionRequest) (confirmation *core.StartTransactionConfirmation, err error) {
	handler.mu.Lock()
	info, ok := handler.chargePoints[chargePointId]
	if !ok {
		handler.mu.Unlock()
		return nil, fmt.Errorf("unknown charge point %v", chargePointId)
	}
	connector := info.getConnector(request.ConnectorId)
	if connector.currentTransaction >= 0 {
		handler.mu.Unlock()
		return nil, fmt.Errorf("connector %v is currently busy with another transaction", request.ConnectorId)
	}
	transaction := &Transaction{}
	transaction.idTag = request.IdTag
	transaction.connectorId = request.ConnectorId
	transaction.meterStart = request.MeterStart
	transaction.startTime = request.Timestamp
	transaction.id = nextTransactionId
	nextTransactionId += 1
	connector.currentTransaction = transaction.id
	info.transactions[transaction.id] = transaction
	handler.mu.Unlock()

	handler.notify("start.transaction", chargePointId, request)
	return core.NewStartTransactionConfirmation(types.NewIdTagInfo(types.AuthorizationStatusAccepted), transaction.id), nil
}

func (handler *CentralSystemHandler) OnStopTransaction(chargePointId string, request *core.StopTransactionRequest) (confirmation *core.StopTransactionConfirmation, err error) {
	handler.mu.Lock()
	info, ok := handler.chargePoints[chargePointId]
	if !ok {
		handler.mu.Unlock()
		return nil, fmt.Errorf("unknown charge point %v", chargePointId)
	}
	transaction, found := info.transactions[request.TransactionId]
	if found {
		connector := info.getConnector(transaction.connectorId)
		connector.currentTransaction = -1
		transaction.endTime = request.Timestamp
		transaction.meterStop = request.MeterStop
	}
	handler.mu.Unlock()

	if found {
		handler.notify("stop.transaction", chargePointId, request)
	}
	return core.NewStopTransactionConfirmation(), nil
}

// ------------- Firmware management profile callbacks -------------

func (handler *CentralSystemHandler) OnDiagnosticsStatusNotification(chargePointId string, request *firmware.DiagnosticsStatusNotificationRequest) (confirmation *firmware.DiagnosticsStatusNotificationConfirmation, err error) {
	handler.mu.Lock()
	info, ok := handler.chargePoints[chargePointId]
	if ok {
		info.diagnosticsStatus = request.Status
	}
	handler.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown charge point %v", chargePointId)
	}
	handler.notify("diagnostics.status.notification", chargePointId, request)
	return firmware.NewDiagnosticsStatusNotificationConfirmation(), nil
}

func (handler *CentralSystemHandler) OnFirmwareStatusNotification(chargePointId string, request *firmware.FirmwareStatusNotificationRequest) (confirmation *firmware.FirmwareStatusNotificationConfirmation, err error) {
	handler.mu.Lock()
	info, ok := handler.chargePoints[chargePointId]
	if ok {
		info.firmwareStatus = request.Status
	}
	handler.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown charge point %v", chargePointId)
	}
	handler.notify("firmware.status.notification", chargePointId, request)
	return &firmware.FirmwareStatusNotificationConfirmation{}, nil
}

// Utility functions

func logDefault(chargePointId string, feature string) *logrus.Entry {
	return log.WithFields(logrus.Fields{"client": chargePointId, "message": feature})
}
