package controls

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the station or connector behind a
	// control cannot be reached. The control state is left unchanged.
	ErrUnavailable = errors.New("station or connector unavailable")

	// ErrCapabilityUnavailable is returned when a numeric setting is
	// changed on a charge point without the SmartCharging profile.
	ErrCapabilityUnavailable = errors.New("smart charging profile not supported")
)

// ConfigurationError marks an invalid control setup, typically a connector
// count that cannot host the per-connector descriptors. Fatal at setup.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid control configuration: %v", e.Reason)
}

// DispatchError reports a command the charge point rejected or that never
// reached it. The control keeps its pre-interaction value.
type DispatchError struct {
	Command string
	Cause   error
}

func (e *DispatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("command %v failed: %v", e.Command, e.Cause)
	}
	return fmt.Sprintf("command %v rejected by charge point", e.Command)
}

func (e *DispatchError) Unwrap() error { return e.Cause }
