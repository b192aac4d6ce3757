package notifier

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"station_controls/common"
	"station_controls/notifier"
)

const envVarNatsUrl = "NATS_URL"

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

type Function func(string, []byte, chan common.Response)

// natsControlNotifier publishes central system events on NATS and serves
// the request/reply command surface for the control plane.
type natsControlNotifier struct {
	notification chan notifier.Notification // events flowing out of the central system
	connection   *nats.Conn
	handlers     map[string]Function // command handlers keyed by action name
	timeout      time.Duration       // how long a handler may take before the reply times out
}

func (ncs *natsControlNotifier) SetTimeout(timeout time.Duration) {
	ncs.timeout = timeout
}

func (ncs natsControlNotifier) Timeout() time.Duration {
	return ncs.timeout
}

func (ncs *natsControlNotifier) AddHandler(action string, fn Function) {
	ncs.handlers[action] = fn
}

func (ncs *natsControlNotifier) SetChannel(notification chan notifier.Notification) {
	ncs.notification = notification
}

func (ncs natsControlNotifier) notificationFromCentralSystem() {
	for {
		n := <-ncs.notification
		bt, err := json.Marshal(n.Data)

		if err != nil {
			log.Error(err)
		} else {
			ncs.connection.Publish(n.Topic, bt)
		}
	}
}

// request/reply pattern: each inbound command is validated, routed to its
// handler and answered with a common.Response envelope.
func (n *natsControlNotifier) requestHandler() {

	var Validator = validator.New()

	n.connection.Subscribe("request", func(m *nats.Msg) {

		var command common.Command
		json.Unmarshal(m.Data, &command)
		log.Printf("RequestHandler, %+v", string(m.Data))
		validate := Validator.Struct(&command)

		if validate != nil {
			bt, _ := json.Marshal(common.Response{
				Err: &common.Error{
					Code:    "command.format.not.valid",
					Message: "the command envelope is not valid",
				},
			})
			log.Errorf("%v", string(bt))
			m.Respond(bt)
			return
		}

		_, exists := n.handlers[command.Action]

		if !exists {
			bt, _ := json.Marshal(common.Response{
				Err: &common.Error{
					Code:    "command.action.not.found",
					Message: fmt.Sprintf("there is no action %q", command.Action),
				},
			})
			log.Errorf("%v", string(bt))
			m.Respond(bt)
			return
		}

		var responseChannel chan common.Response = make(chan common.Response)
		payload, _ := json.Marshal(command.Payload)

		var fn Function = n.handlers[command.Action]

		go fn(command.ChargePointId, payload, responseChannel)

		select {
		case response := <-responseChannel:
			bt, _ := json.Marshal(response)
			log.Printf("RequestHandler => Response, %v", string(bt))
			m.Respond(bt)
		case <-time.After(n.timeout):
			bt, _ := json.Marshal(common.Response{
				Err: &common.Error{
					Code:    "request.timeout",
					Message: "the request timed out waiting for the charge point",
				},
			})
			log.Errorf("%v", string(bt))
			m.Respond(bt)
		}
	})
}

func (ncs *natsControlNotifier) Start() {

	url, ok := os.LookupEnv(envVarNatsUrl)
	if !ok {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url)
	if err != nil {
		log.Fatal(err)
	}
	ncs.connection = nc
	go ncs.notificationFromCentralSystem()
	go ncs.requestHandler()
}

func (ncs *natsControlNotifier) Stop() {
	if ncs.connection != nil {
		ncs.connection.Close()
		log.Info("NatsStopped")
	}
}

func New() *natsControlNotifier {
	return &natsControlNotifier{
		notification: nil,
		connection:   nil,
		handlers:     make(map[string]Function),
		timeout:      30 * time.Second,
	}
}
