package main

import (
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
)

type Connector struct {
	status             core.ChargePointStatus
	currentTransaction int
	metrics            map[string]string
}

func NewConnector() *Connector {
	return &Connector{
		status:             core.ChargePointStatusAvailable,
		currentTransaction: -1,
		metrics:            map[string]string{},
	}
}

func (conn *Connector) hasTransactionInProgress() bool {
	return conn.currentTransaction >= 0
}
