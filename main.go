package main

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"station_controls/actions"
	"station_controls/bus"
	notifier "station_controls/notifier/nats"

	ocpp16 "github.com/lorenzodonini/ocpp-go/ocpp1.6"
	"github.com/lorenzodonini/ocpp-go/ocppj"
	"github.com/lorenzodonini/ocpp-go/ws"
)

const (
	defaultListenPort          = 8887
	defaultHeartbeatInterval   = 600
	envVarServerPort           = "SERVER_LISTEN_PORT"
	envVarTls                  = "TLS_ENABLED"
	envVarCaCertificate        = "CA_CERTIFICATE_PATH"
	envVarServerCertificate    = "SERVER_CERTIFICATE_PATH"
	envVarServerCertificateKey = "SERVER_CERTIFICATE_KEY_PATH"
	envVarValueStorePath       = "CONTROL_VALUE_STORE_PATH"
)

const (
	CONTROL_LIST      = "control.list"
	CONTROL_PRESS     = "control.press"
	CONTROL_SET_STATE = "control.set.state"
	CONTROL_SET_VALUE = "control.set.value"
)

var log *logrus.Logger
var centralSystem ocpp16.CentralSystem

func setupCentralSystem() ocpp16.CentralSystem {
	return ocpp16.NewCentralSystem(nil, nil)
}

func setupTlsCentralSystem() ocpp16.CentralSystem {
	var certPool *x509.CertPool
	// Load CA certificates
	caCertificate, ok := os.LookupEnv(envVarCaCertificate)
	if !ok {
		log.Infof("no %v found, using system CA pool", envVarCaCertificate)
		systemPool, err := x509.SystemCertPool()
		if err != nil {
			log.Fatalf("couldn't get system CA pool: %v", err)
		}
		certPool = systemPool
	} else {
		certPool = x509.NewCertPool()
		data, err := os.ReadFile(caCertificate)
		if err != nil {
			log.Fatalf("couldn't read CA certificate from %v: %v", caCertificate, err)
		}
		ok = certPool.AppendCertsFromPEM(data)
		if !ok {
			log.Fatalf("couldn't read CA certificate from %v", caCertificate)
		}
	}
	certificate, ok := os.LookupEnv(envVarServerCertificate)
	if !ok {
		log.Fatalf("no required %v found", envVarServerCertificate)
	}
	key, ok := os.LookupEnv(envVarServerCertificateKey)
	if !ok {
		log.Fatalf("no required %v found", envVarServerCertificateKey)
	}
	server := ws.NewTLSServer(certificate, key, &tls.Config{
		ClientAuth: tls.RequireAndVerifyClientCert,
		ClientCAs:  certPool,
	})
	return ocpp16.NewCentralSystem(nil, server)
}

// Start function
func main() {
	if enabled, _ := strconv.ParseBool(os.Getenv(envVarTls)); enabled {
		centralSystem = setupTlsCentralSystem()
	} else {
		centralSystem = setupCentralSystem()
	}

	updates := bus.New()
	csHandler := NewCentralSystemHandler(updates)
	centralSystem.SetCoreHandler(csHandler)
	centralSystem.SetFirmwareManagementHandler(csHandler)

	ocppj.SetLogger(log)
	ocppj.SetMessageValidation(false)

	valueStore := NewValueStore(os.Getenv(envVarValueStorePath))
	gateway := NewGateway(centralSystem, csHandler, valueStore, updates)

	centralSystem.SetNewChargePointHandler(func(chargePoint ocpp16.ChargePointConnection) {
		csHandler.AddChargePoint(chargePoint.ID())
		log.WithField("client", chargePoint.ID()).Info("new charge point connected")
		go func(id string) {
			if err := gateway.Provision(id); err != nil {
				logDefault(id, "provision").Errorf("couldn't set up controls: %v", err)
			}
		}(chargePoint.ID())
	})

	centralSystem.SetChargePointDisconnectedHandler(func(chargePoint ocpp16.ChargePointConnection) {
		log.WithField("client", chargePoint.ID()).Info("charge point disconnected")
		csHandler.RemoveChargePoint(chargePoint.ID())
	})

	natsNotifier := notifier.New()
	natsNotifier.SetChannel(csHandler.NotificationChannel())
	natsNotifier.SetTimeout(3 * time.Minute)
	log.Printf("request timeout: %v", natsNotifier.Timeout().String())

	controlActions := actions.InitializeControlActions(csHandler, valueStore)

	natsNotifier.AddHandler(CONTROL_LIST, controlActions.List)
	natsNotifier.AddHandler(CONTROL_PRESS, controlActions.Press)
	natsNotifier.AddHandler(CONTROL_SET_STATE, controlActions.SetState)
	natsNotifier.AddHandler(CONTROL_SET_VALUE, controlActions.SetValue)

	natsNotifier.Start()
	defer natsNotifier.Stop()

	listenPort := defaultListenPort
	if value, ok := os.LookupEnv(envVarServerPort); ok {
		if port, err := strconv.Atoi(value); err == nil {
			listenPort = port
		}
	}

	// Run central system
	log.Infof("starting central system on port %v", listenPort)
	centralSystem.Start(listenPort, "/{ws}")

	log.Info("stopped central system")
}

func init() {
	log = logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	// Set this to DebugLevel if you want to retrieve verbose logs from the ocppj and websocket layers
	log.SetLevel(logrus.InfoLevel)
}
