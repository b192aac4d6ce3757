package actions

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"station_controls/common"
	"station_controls/controls"
)

func logDefault(chargePointId string, feature string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"client": chargePointId, "message": feature})
}

// RegistryProvider hands out the control registry of a connected charge
// point.
type RegistryProvider interface {
	ControlRegistry(chargePointId string) (*controls.Registry, bool)
}

// ValueRecorder persists accepted numeric values for restore-on-restart.
type ValueRecorder interface {
	RecordValue(identity string, value float64)
}

// ControlActions exposes the per-station control surface as request/reply
// handlers bound to the notifier.
type ControlActions struct {
	provider  RegistryProvider
	recorder  ValueRecorder
	validator *validator.Validate
}

func InitializeControlActions(provider RegistryProvider, recorder ValueRecorder) ControlActions {
	return ControlActions{
		provider:  provider,
		recorder:  recorder,
		validator: validator.New(),
	}
}

type controlRequest struct {
	Identity string   `json:"identity" validate:"required"`
	State    *bool    `json:"state"`
	Value    *float64 `json:"value"`
}

type controlView struct {
	Identity    string      `json:"identity"`
	Key         string      `json:"key"`
	Label       string      `json:"label"`
	Kind        string      `json:"kind"`
	ConnectorId int         `json:"connectorId"`
	Unit        string      `json:"unit,omitempty"`
	Value       interface{} `json:"value,omitempty"`
	Available   bool        `json:"available"`
}

// List replies with every control instance of the charge point, in
// registration order.
func (a *ControlActions) List(chargePointID string, payload []byte, responseChannel chan common.Response) {
	var response common.Response

	registry, ok := a.provider.ControlRegistry(chargePointID)
	if !ok {
		response.Err = &common.Error{
			Code:    "control.station.not.found",
			Message: fmt.Sprintf("no controls registered for charge point %v", chargePointID),
		}
		responseChannel <- response
		return
	}

	views := make([]controlView, 0, len(registry.Instances()))
	for _, instance := range registry.Instances() {
		views = append(views, controlView{
			Identity:    instance.Identity(),
			Key:         instance.Descriptor.Key,
			Label:       instance.Descriptor.Label,
			Kind:        instance.Descriptor.Kind.String(),
			ConnectorId: instance.ConnectorId,
			Unit:        instance.Descriptor.Unit,
			Value:       instance.CurrentValue(),
			Available:   instance.IsAvailable(),
		})
	}
	response.Payload = views
	responseChannel <- response
}

// Press fires a momentary control.
func (a *ControlActions) Press(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request, instance, fail := a.resolve(chargePointID, payload)
	if fail != nil {
		responseChannel <- common.Response{Err: fail}
		return
	}

	if err := instance.OnInteract(controls.Press()); err != nil {
		logDefault(chargePointID, request.Identity).Errorf("press failed: %v", err)
		responseChannel <- common.Response{Err: interactionError(err)}
		return
	}
	responseChannel <- common.Response{Payload: "ok"}
}

// SetState turns a toggle control on or off.
func (a *ControlActions) SetState(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request, instance, fail := a.resolve(chargePointID, payload)
	if fail != nil {
		responseChannel <- common.Response{Err: fail}
		return
	}
	if request.State == nil {
		responseChannel <- common.Response{Err: &common.Error{
			Code:    "control.payload.not.valid",
			Message: "state is required",
		}}
		return
	}

	intent := controls.TurnOff()
	if *request.State {
		intent = controls.TurnOn()
	}
	if err := instance.OnInteract(intent); err != nil {
		logDefault(chargePointID, request.Identity).Errorf("set state failed: %v", err)
		responseChannel <- common.Response{Err: interactionError(err)}
		return
	}
	responseChannel <- common.Response{Payload: map[string]interface{}{"state": instance.State()}}
}

// SetValue changes a numeric setting.
func (a *ControlActions) SetValue(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request, instance, fail := a.resolve(chargePointID, payload)
	if fail != nil {
		responseChannel <- common.Response{Err: fail}
		return
	}
	if request.Value == nil {
		responseChannel <- common.Response{Err: &common.Error{
			Code:    "control.payload.not.valid",
			Message: "value is required",
		}}
		return
	}

	if err := instance.OnInteract(controls.SetValue(*request.Value)); err != nil {
		logDefault(chargePointID, request.Identity).Errorf("set value failed: %v", err)
		responseChannel <- common.Response{Err: interactionError(err)}
		return
	}
	if a.recorder != nil {
		a.recorder.RecordValue(instance.Identity(), instance.Value())
	}
	responseChannel <- common.Response{Payload: map[string]interface{}{"value": instance.Value()}}
}

func (a *ControlActions) resolve(chargePointID string, payload []byte) (*controlRequest, *controls.ControlInstance, *common.Error) {
	request := &controlRequest{}

	json.Unmarshal(payload, request)
	if err := a.validator.Struct(request); err != nil {
		return nil, nil, &common.Error{
			Code:    "control.payload.not.valid",
			Message: "a control identity is required",
		}
	}

	registry, ok := a.provider.ControlRegistry(chargePointID)
	if !ok {
		return nil, nil, &common.Error{
			Code:    "control.station.not.found",
			Message: fmt.Sprintf("no controls registered for charge point %v", chargePointID),
		}
	}
	instance, ok := registry.Lookup(request.Identity)
	if !ok {
		return nil, nil, &common.Error{
			Code:    "control.not.found",
			Message: fmt.Sprintf("unknown control %v", request.Identity),
		}
	}
	return request, instance, nil
}

func interactionError(err error) *common.Error {
	switch {
	case errors.Is(err, controls.ErrUnavailable):
		return &common.Error{
			Code:    "control.unavailable",
			Message: "the station or connector is not reachable",
		}
	case errors.Is(err, controls.ErrCapabilityUnavailable):
		return &common.Error{
			Code:    "control.capability.unavailable",
			Message: "the charge point does not support smart charging",
		}
	}
	var dispatchErr *controls.DispatchError
	if errors.As(err, &dispatchErr) {
		return &common.Error{
			Code:    "control.dispatch.failed",
			Message: dispatchErr.Error(),
		}
	}
	return &common.Error{
		Code:    "control.interaction.failed",
		Message: err.Error(),
	}
}
